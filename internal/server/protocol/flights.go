package protocol

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/flightkeeper/internal/common"
	"github.com/dmitrijs2005/flightkeeper/internal/server/flights"
	"github.com/dmitrijs2005/flightkeeper/internal/server/models"
	"github.com/dmitrijs2005/flightkeeper/internal/wire"
)

// setUser replaces the session user and closes the previous one.
func (h *Handler) setUser(st *flights.Store) {
	if h.user != nil && h.user != st {
		h.user.Close()
	}
	h.user = st
}

func (h *Handler) login(ctx context.Context, p []byte) error {
	login, err := models.DeserializeLoginData(p)
	if err != nil {
		return h.status(StatusBadDataReceived)
	}

	st, err := h.svc.Users.Login(ctx, login)
	if err != nil {
		if errors.Is(err, common.ErrorBadData) {
			return h.status(StatusUnknownUserOrPass)
		}
		return err
	}
	h.setUser(st)

	if !st.CorrectKey() {
		return h.status(StatusUnknownUserOrPass)
	}
	return h.status(StatusOK)
}

func (h *Handler) newAccount(ctx context.Context, p []byte) error {
	login, err := models.DeserializeLoginData(p)
	if err != nil {
		return h.status(StatusBadDataReceived)
	}

	st, err := h.svc.Users.CreateUser(ctx, login)
	switch {
	case errors.Is(err, common.ErrorAlreadyExists):
		return h.status(StatusUserAlreadyExists)
	case errors.Is(err, common.ErrorBadData):
		return h.status(StatusBadDataReceived)
	case err != nil:
		return err
	}
	h.setUser(st)
	return h.status(StatusOK)
}

// changePassword checks the session before the payload: a session with a
// wrong key answers UNKNOWN_USER_OR_PASS, no session NOT_LOGGED_IN.
func (h *Handler) changePassword(ctx context.Context, p []byte) error {
	if h.user != nil && !h.user.CorrectKey() {
		return h.status(StatusUnknownUserOrPass)
	}
	if h.user == nil {
		return h.status(StatusNotLoggedIn)
	}

	newLogin, err := models.DeserializeLoginDataWithEmail(p)
	if err != nil {
		return h.status(StatusBadDataReceived)
	}

	st, err := h.svc.Users.ChangePassword(ctx, h.user, newLogin)
	if err != nil {
		return err
	}
	h.setUser(st)
	return h.status(StatusOK)
}

// loadedFile returns the loaded flights of the session user. When there is
// none it has already answered the client and returns ok == false.
func (h *Handler) loadedFile(ctx context.Context) (ff *flights.FlightsFile, ok bool, err error) {
	if h.user == nil || !h.user.CorrectKey() {
		return nil, false, h.status(StatusNotLoggedIn)
	}
	ff, err = h.user.Load(ctx)
	if err != nil {
		h.logger.Error(ctx, "user file unusable", "user", h.user.Username(), "error", err)
		return nil, false, h.status(StatusServerError)
	}
	return ff, true, nil
}

func (h *Handler) receiveFlights(ctx context.Context, p []byte) error {
	if _, ok, err := h.loadedFile(ctx); !ok {
		return err
	}

	newFlights, err := models.UnpackFlights(p, h.user.ResponseVersion())
	if err != nil {
		h.logger.Warn(ctx, "bad flights received", "error", err)
		return h.status(StatusBadDataReceived)
	}

	n, err := h.user.AddFlights(newFlights)
	if err != nil {
		return err
	}
	h.logger.Info(ctx, "flights received", "user", h.user.Username(), "count", n)
	return h.sendOK(wire.WrapInt(int32(n)))
}

func (h *Handler) flightsSince(ctx context.Context, p []byte) error {
	ff, ok, err := h.loadedFile(ctx)
	if !ok {
		return err
	}
	ts, err := wire.UnwrapLong(p)
	if err != nil {
		return h.status(StatusBadDataReceived)
	}
	out := ff.Since(ts)
	h.logger.Debug(ctx, "sending flights", "since", ts, "count", len(out))
	return h.send(models.PackFlights(out, h.user.ResponseVersion()))
}

func (h *Handler) flightsByID(ctx context.Context, p []byte) error {
	ff, ok, err := h.loadedFile(ctx)
	if !ok {
		return err
	}
	ids, err := wire.UnpackInts(p)
	if err != nil {
		h.logger.Warn(ctx, "bad id list received", "error", err)
		return h.status(StatusBadDataReceived)
	}
	return h.send(models.PackFlights(ff.ByIDs(ids), h.user.ResponseVersion()))
}

func (h *Handler) checksum(ctx context.Context) error {
	ff, ok, err := h.loadedFile(ctx)
	if !ok {
		return err
	}
	return h.send(wire.WrapBytes(ff.Checksum()))
}

func (h *Handler) manifest(ctx context.Context) error {
	ff, ok, err := h.loadedFile(ctx)
	if !ok {
		return err
	}
	entries := ff.Manifest()
	items := make([][]byte, len(entries))
	for i, e := range entries {
		items[i] = e.Serialize()
	}
	return h.send(wire.Pack(items))
}

func (h *Handler) addTimestamp(ctx context.Context, p []byte) error {
	if _, ok, err := h.loadedFile(ctx); !ok {
		return err
	}
	ts, err := wire.UnwrapLong(p)
	if err != nil {
		return h.status(StatusBadDataReceived)
	}
	if err := h.user.SetTimestamp(ts); err != nil {
		return err
	}
	return h.status(StatusOK)
}

func (h *Handler) saveChanges(ctx context.Context) error {
	if _, ok, err := h.loadedFile(ctx); !ok {
		return err
	}
	if err := h.user.WriteFlightsToDisk(ctx); err != nil {
		return err
	}
	return h.status(StatusOK)
}

func (h *Handler) removeDuplicates(ctx context.Context) error {
	if _, ok, err := h.loadedFile(ctx); !ok {
		return err
	}
	if err := h.user.RemoveDuplicates(ctx); err != nil {
		return err
	}
	return h.status(StatusOK)
}
