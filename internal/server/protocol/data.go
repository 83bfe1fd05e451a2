package protocol

import (
	"context"

	"github.com/dmitrijs2005/flightkeeper/internal/server/models"
	"github.com/dmitrijs2005/flightkeeper/internal/wire"
)

func (h *Handler) receiveConsensus(ctx context.Context, p []byte) error {
	items, err := wire.Unpack(p)
	if err != nil {
		return h.status(StatusBadDataReceived)
	}
	votes := make([]models.ConsensusData, 0, len(items))
	for _, it := range items {
		v, err := models.DeserializeConsensusData(it)
		if err != nil {
			h.logger.Warn(ctx, "bad consensus vote", "error", err)
			return h.status(StatusBadDataReceived)
		}
		votes = append(votes, v)
	}

	if err := h.svc.Consensus.Apply(ctx, votes); err != nil {
		return err
	}
	return h.status(StatusOK)
}

func (h *Handler) airportDBVersion(ctx context.Context) error {
	v, err := h.svc.Airports.Version()
	if err != nil {
		return err
	}
	return h.send(wire.WrapInt(v))
}

func (h *Handler) airportDB(ctx context.Context) error {
	data, ok, err := h.svc.Airports.Data()
	if err != nil {
		return err
	}
	if !ok {
		h.logger.Warn(ctx, "airport database requested but not present")
		return h.status(StatusServerError)
	}
	return h.send(data)
}

func (h *Handler) receiveFeedback(ctx context.Context, p []byte) error {
	fb, err := models.DeserializeFeedbackData(p)
	if err != nil {
		return h.status(StatusBadDataReceived)
	}
	if err := h.svc.Feedback.Add(ctx, fb); err != nil {
		return err
	}
	return h.status(StatusOK)
}

// storeP2P opens a relay session holding p and answers its id.
func (h *Handler) storeP2P(ctx context.Context, p []byte) error {
	id := h.svc.Relay.CreateSession()
	if err := h.svc.Relay.Put(id, p); err != nil {
		return err
	}
	h.logger.Debug(ctx, "relay session stored", "session", id, "bytes", len(p))
	return h.send(wire.WrapLong(id))
}

func (h *Handler) getP2P(ctx context.Context, p []byte) error {
	id, err := wire.UnwrapLong(p)
	if err != nil {
		return h.status(StatusBadDataReceived)
	}
	data, ok := h.svc.Relay.Get(id)
	if !ok {
		return h.status(StatusIDNotFound)
	}
	return h.send(data)
}
