package protocol

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/flightkeeper/internal/common"
	"github.com/dmitrijs2005/flightkeeper/internal/server/models"
	"github.com/dmitrijs2005/flightkeeper/internal/wire"
)

var errMailDisabled = errors.New("mail is not configured")

func (h *Handler) setEmail(ctx context.Context, p []byte) error {
	if h.svc.Email == nil {
		return errMailDisabled
	}
	data, err := models.DeserializeLoginDataWithEmail(p)
	if err != nil {
		return h.status(StatusBadDataReceived)
	}

	ok, err := h.svc.Users.CheckLogin(ctx, data.LoginData)
	if err != nil && !errors.Is(err, common.ErrorBadData) {
		return err
	}
	if !ok {
		return h.status(StatusUnknownUserOrPass)
	}

	return h.emailRecordCreated(h.svc.Email.SetEmail(ctx, data.Email))
}

// migrateEmail accepts the address of an older client without credentials.
// The record is created pending and no mail is sent.
func (h *Handler) migrateEmail(ctx context.Context, p []byte) error {
	if h.svc.Email == nil {
		return errMailDisabled
	}
	data, err := models.DeserializeLoginDataWithEmail(p)
	if err != nil {
		return h.status(StatusBadDataReceived)
	}
	return h.emailRecordCreated(h.svc.Email.MigrateEmail(ctx, data.Email))
}

func (h *Handler) emailRecordCreated(id int64, err error) error {
	switch {
	case errors.Is(err, common.ErrorInvalidEmail):
		return h.status(StatusNotAValidEmailAddress)
	case err != nil:
		return err
	}
	return h.send(wire.WrapLong(id))
}

func (h *Handler) confirmEmail(ctx context.Context, p []byte) error {
	if h.svc.Email == nil {
		return errMailDisabled
	}
	token, err := wire.UnwrapString(p)
	if err != nil {
		return h.status(StatusBadDataReceived)
	}

	err = h.svc.Email.ConfirmEmail(ctx, token)
	switch {
	case err == nil:
		return h.status(StatusOK)
	case errors.Is(err, common.ErrorNotFound):
		return h.status(StatusIDNotFound)
	case errors.Is(err, common.ErrorNotVerified):
		return h.status(StatusEmailNotKnownOrVerified)
	case errors.Is(err, common.ErrorBadData):
		return h.status(StatusBadDataReceived)
	default:
		return err
	}
}

func (h *Handler) forwardBackup(ctx context.Context, p []byte) error {
	if h.svc.Email == nil {
		return errMailDisabled
	}
	data, err := models.DeserializeEmailData(p)
	if err != nil {
		return h.status(StatusBadDataReceived)
	}

	err = h.svc.Email.ForwardBackupEmail(ctx, data)
	switch {
	case err == nil:
		return h.status(StatusOK)
	case errors.Is(err, common.ErrorNotVerified):
		return h.status(StatusEmailNotKnownOrVerified)
	case errors.Is(err, common.ErrorInvalidEmail):
		return h.status(StatusNotAValidEmailAddress)
	default:
		return err
	}
}

func (h *Handler) sendTestEmail(ctx context.Context) error {
	if h.svc.Email == nil {
		return errMailDisabled
	}
	if err := h.svc.Email.SendTestEmail(ctx); err != nil {
		return err
	}
	return h.status(StatusOK)
}
