package protocol

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/flightkeeper/internal/logging"
	"github.com/dmitrijs2005/flightkeeper/internal/server/consensus"
	"github.com/dmitrijs2005/flightkeeper/internal/server/flights"
	"github.com/dmitrijs2005/flightkeeper/internal/server/models"
	"github.com/dmitrijs2005/flightkeeper/internal/wire"
)

// UserAdmin creates accounts and opens user stores.
type UserAdmin interface {
	CreateUser(ctx context.Context, login models.LoginData) (*flights.Store, error)
	GenerateUsername(ctx context.Context) (string, error)
	Login(ctx context.Context, login models.LoginData) (*flights.Store, error)
	CheckLogin(ctx context.Context, login models.LoginData) (bool, error)
	ChangePassword(ctx context.Context, st *flights.Store, newLogin models.LoginDataWithEmail) (*flights.Store, error)
}

// EmailWorkflows runs the email verification and forwarding requests.
type EmailWorkflows interface {
	SetEmail(ctx context.Context, address string) (int64, error)
	MigrateEmail(ctx context.Context, address string) (int64, error)
	ConfirmEmail(ctx context.Context, token string) error
	ForwardBackupEmail(ctx context.Context, data models.EmailData) error
	SendTestEmail(ctx context.Context) error
}

type ConsensusStore interface {
	Apply(ctx context.Context, votes []models.ConsensusData) error
	SerializedConsensus() []byte
}

type AirportSource interface {
	Version() (int32, error)
	Data() ([]byte, bool, error)
}

type FeedbackSink interface {
	Add(ctx context.Context, fb models.FeedbackData) error
}

type RelayStore interface {
	CreateSession() int64
	Put(id int64, data []byte) error
	Get(id int64) ([]byte, bool)
}

// Services are the shared collaborators every connection uses. Email may be
// nil when no mail server is configured; email requests then answer
// SERVER_ERROR.
type Services struct {
	Users       UserAdmin
	Email       EmailWorkflows
	Consensus   ConsensusStore
	Catalog     *consensus.Catalog
	ForcedTypes *consensus.ForcedTypes
	Airports    AirportSource
	Feedback    FeedbackSink
	Relay       RelayStore
}

// Handler serves one connection. It is not safe for concurrent use.
type Handler struct {
	conn   io.ReadWriter
	codec  *wire.Codec
	svc    *Services
	logger logging.Logger
	now    func() time.Time

	user            *flights.Store
	protocolVersion int32
}

func NewHandler(conn io.ReadWriter, codec *wire.Codec, svc *Services, logger logging.Logger) *Handler {
	return &Handler{
		conn:   conn,
		codec:  codec,
		svc:    svc,
		logger: logger,
		now:    time.Now,
	}
}

// Serve reads and answers requests until the client ends the session, sends
// something that is not a known request, the connection fails or ctx is
// done. A clean disconnect returns nil.
//
// Errors inside a single request are answered with SERVER_ERROR and the loop
// goes on.
func (h *Handler) Serve(ctx context.Context) error {
	defer h.setUser(nil)

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		frame, err := h.codec.ReadFrame(h.conn)
		if err != nil {
			if errors.Is(err, io.EOF) {
				h.logger.Debug(ctx, "client disconnected")
				return nil
			}
			return err
		}

		req, err := ParseRequest(frame)
		if err != nil {
			h.logger.Warn(ctx, "invalid request, closing connection", "error", err)
			return nil
		}

		keepGoing, err := h.serveOne(ctx, req)
		if err != nil {
			return err
		}
		if !keepGoing {
			return nil
		}
	}
}

// serveOne handles req and turns handler failures into SERVER_ERROR. Only a
// failed write is returned.
func (h *Handler) serveOne(ctx context.Context, req Request) (keepGoing bool, err error) {
	h.logger.Debug(ctx, "request", "keyword", req.Keyword, "bytes", len(req.Payload))

	defer func() {
		if p := recover(); p != nil {
			h.logger.Error(ctx, "panic while handling request", "keyword", req.Keyword, "panic", fmt.Sprint(p))
			keepGoing, err = true, h.status(StatusServerError)
		}
	}()

	keepGoing, herr := h.dispatch(ctx, req)
	if herr == nil {
		return keepGoing, nil
	}

	var werr *writeError
	if errors.As(herr, &werr) {
		return false, werr.err
	}
	h.logger.Error(ctx, "request failed", "keyword", req.Keyword, "error", herr)
	return true, h.status(StatusServerError)
}

// dispatch routes req to its handler. Every Kind must have a case.
func (h *Handler) dispatch(ctx context.Context, req Request) (bool, error) {
	p := req.Payload

	switch req.Kind {
	case KindHello:
		return true, h.hello(ctx, p)
	case KindRequestTimestamp:
		return true, h.send(wire.WrapLong(h.now().Unix()))
	case KindRequestNewUsername:
		return true, h.newUsername(ctx)
	case KindLogin:
		return true, h.login(ctx, p)
	case KindNewAccount:
		return true, h.newAccount(ctx, p)
	case KindUpdatePassword, KindChangePassword:
		return true, h.changePassword(ctx, p)
	case KindSetEmail:
		return true, h.setEmail(ctx, p)
	case KindMigrateEmailData:
		return true, h.migrateEmail(ctx, p)
	case KindConfirmEmail:
		return true, h.confirmEmail(ctx, p)
	case KindSendingBackupEmailData:
		return true, h.forwardBackup(ctx, p)
	case KindSendTestEmail:
		return true, h.sendTestEmail(ctx)
	case KindSendingFlights:
		return true, h.receiveFlights(ctx, p)
	case KindRequestFlightsSinceTimestamp:
		return true, h.flightsSince(ctx, p)
	case KindRequestFlightsByID:
		return true, h.flightsByID(ctx, p)
	case KindRequestFlightsListChecksum:
		return true, h.checksum(ctx)
	case KindRequestIDWithTimestampsList:
		return true, h.manifest(ctx)
	case KindAddTimestamp:
		return true, h.addTimestamp(ctx, p)
	case KindSaveChanges:
		return true, h.saveChanges(ctx)
	case KindRemoveDuplicates:
		return true, h.removeDuplicates(ctx)
	case KindSendingAircraftConsensus:
		return true, h.receiveConsensus(ctx, p)
	case KindRequestAircraftConsensus:
		return true, h.send(h.svc.Consensus.SerializedConsensus())
	case KindRequestAircraftTypes:
		return true, h.send(h.svc.Catalog.Serialize())
	case KindRequestAircraftTypesVersion:
		return true, h.send(wire.WrapInt(h.svc.Catalog.Version))
	case KindRequestForcedTypes:
		return true, h.send(h.svc.ForcedTypes.Serialize())
	case KindRequestForcedTypesVersion:
		return true, h.send(wire.WrapInt(h.svc.ForcedTypes.Version))
	case KindRequestAirportDB:
		return true, h.airportDB(ctx)
	case KindRequestAirportDBVersion:
		return true, h.airportDBVersion(ctx)
	case KindSendingFeedback:
		return true, h.receiveFeedback(ctx, p)
	case KindSendingP2PData:
		return true, h.storeP2P(ctx, p)
	case KindRequestP2PData:
		return true, h.getP2P(ctx, p)
	case KindEndOfSession:
		h.logger.Debug(ctx, "end of session")
		return false, nil
	case KindUnknown:
		h.logger.Warn(ctx, "unknown request, closing connection", "keyword", req.Keyword)
		return false, nil
	default:
		return false, fmt.Errorf("no handler for %v", req.Kind)
	}
}

// hello records the protocol version the client announces. HELLO is never
// answered; a payload that is not a version is only logged.
func (h *Handler) hello(ctx context.Context, p []byte) error {
	switch {
	case len(p) == 0:
		h.logger.Debug(ctx, "hello without version")
		return nil
	case len(p) == 4:
		h.protocolVersion = int32(binary.BigEndian.Uint32(p))
	default:
		v, err := wire.UnwrapInt(p)
		if err != nil {
			h.logger.Warn(ctx, "unreadable HELLO ignored", "error", err)
			return nil
		}
		h.protocolVersion = v
	}
	h.logger.Debug(ctx, "hello", "protocol_version", h.protocolVersion)
	return nil
}

func (h *Handler) newUsername(ctx context.Context) error {
	name, err := h.svc.Users.GenerateUsername(ctx)
	if err != nil {
		return err
	}
	return h.send(wire.WrapString(name))
}

// writeError marks a failed socket write, which ends the connection.
type writeError struct {
	err error
}

func (e *writeError) Error() string { return "write response: " + e.err.Error() }
func (e *writeError) Unwrap() error { return e.err }

func (h *Handler) send(payload []byte) error {
	if err := h.codec.WriteFrame(h.conn, payload); err != nil {
		return &writeError{err: err}
	}
	return nil
}

func (h *Handler) status(s string) error {
	return h.send(wire.WrapString(s))
}

// sendOK answers OK followed by extra wrapped values.
func (h *Handler) sendOK(extra ...[]byte) error {
	var b wire.Buffer
	b.PutString(StatusOK)
	for _, e := range extra {
		b.PutRaw(e)
	}
	return h.send(b.Bytes())
}
