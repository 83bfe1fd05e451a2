package services

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/flightkeeper/internal/common"
	"github.com/dmitrijs2005/flightkeeper/internal/cryptox"
	"github.com/dmitrijs2005/flightkeeper/internal/dbx"
	"github.com/dmitrijs2005/flightkeeper/internal/logging"
	"github.com/dmitrijs2005/flightkeeper/internal/server/auth"
	"github.com/dmitrijs2005/flightkeeper/internal/server/config"
	"github.com/dmitrijs2005/flightkeeper/internal/server/mail"
	"github.com/dmitrijs2005/flightkeeper/internal/server/models"
	"github.com/dmitrijs2005/flightkeeper/internal/server/repositories/repomanager"
)

const (
	ConfirmationLinkPrefix = "https://joozdlog.joozd.nl/verify-email/"
	LoginLinkPrefix        = "https://joozdlog.joozd.nl/inject-key/"

	emailSaltSize = 16
)

// EmailService keeps email verification records and sends every mail the
// server produces. Addresses are never stored, only a salted hash.
type EmailService struct {
	db             *sql.DB
	repomanager    repomanager.RepositoryManager
	mailer         mail.Mailer
	tokenSecret    []byte
	tokenValidity  time.Duration
	recordValidity time.Duration
	adminAddress   string
	logger         logging.Logger
	now            func() time.Time
}

func NewEmailService(db *sql.DB, m repomanager.RepositoryManager, mailer mail.Mailer, cfg *config.Config, logger logging.Logger) *EmailService {
	return &EmailService{
		db:             db,
		repomanager:    m,
		mailer:         mailer,
		tokenSecret:    []byte(cfg.SecretKey),
		tokenValidity:  cfg.EmailTokenValidityDuration,
		recordValidity: cfg.EmailRecordValidityDuration,
		adminAddress:   cfg.AdminEmail,
		logger:         logger,
		now:            time.Now,
	}
}

// SetEmail registers address as pending and mails it a confirmation link.
// The caller checks the credentials first.
func (s *EmailService) SetEmail(ctx context.Context, address string) (int64, error) {
	address = strings.TrimSpace(address)
	rec, err := s.createRecord(ctx, address)
	if err != nil {
		return 0, err
	}
	if err := s.sendConfirmation(ctx, rec, address); err != nil {
		return 0, err
	}
	return rec.ID, nil
}

// MigrateEmail stores the address an older client kept locally as a pending
// record. The request carries no credentials, so nothing is mailed; the
// record is confirmed through a later SetEmail or purged when stale.
func (s *EmailService) MigrateEmail(ctx context.Context, address string) (int64, error) {
	rec, err := s.createRecord(ctx, strings.TrimSpace(address))
	if err != nil {
		return 0, err
	}
	s.logger.Info(ctx, "email record migrated", "email_id", rec.ID)
	return rec.ID, nil
}

func (s *EmailService) createRecord(ctx context.Context, address string) (*models.EmailRecord, error) {
	if err := mail.ValidateAddress(address); err != nil {
		return nil, err
	}

	salt := common.GenerateRandByteArray(emailSaltSize)
	rec := &models.EmailRecord{
		Hash:         cryptox.HashEmail(address, salt),
		Salt:         salt,
		LastAccessed: s.now(),
	}

	id, err := s.repomanager.EmailRecords(s.db).Create(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("error creating email record: %w", err)
	}
	rec.ID = id
	return rec, nil
}

func (s *EmailService) sendConfirmation(ctx context.Context, rec *models.EmailRecord, address string) error {
	token, err := auth.GenerateEmailToken(rec.ID, rec.Hash, s.tokenSecret, s.tokenValidity)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}
	link := ConfirmationLinkPrefix + token

	err = s.mailer.Send(ctx, mail.Message{
		To:      address,
		Subject: "Joozdlog email confirmation mail",
		Text: "Please open this link with the JoozdLog app to confirm your email address.\n\n" +
			"link:\n" + link + "\n\nEnjoy,\nJoozd",
	})
	if err != nil {
		return fmt.Errorf("send confirmation: %w", err)
	}
	s.logger.Info(ctx, "confirmation mail sent", "email_id", rec.ID)
	return nil
}

// ConfirmEmail marks the record named in token as verified.
//
// It returns common.ErrorBadData for a token that cannot be read,
// common.ErrorNotFound for an unknown record and common.ErrorNotVerified when
// the token expired or no longer matches the record.
func (s *EmailService) ConfirmEmail(ctx context.Context, token string) error {
	id, hash, err := auth.ParseEmailToken(token, s.tokenSecret)
	if err != nil {
		if errors.Is(err, common.ErrorTokenExpired) {
			return fmt.Errorf("%w: %w", common.ErrorNotVerified, err)
		}
		return fmt.Errorf("%w: %w", common.ErrorBadData, err)
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.EmailRecords(tx)
		now := s.now()

		rec, err := repo.Find(ctx, id, now)
		if err != nil {
			return err
		}
		if !cryptox.Equal(rec.Hash, hash) {
			return common.ErrorNotVerified
		}
		if rec.IsVerified {
			return nil
		}
		return repo.MarkVerified(ctx, id, now)
	})
}

// checkConfirmed returns common.ErrorNotVerified unless id is a verified
// record for address.
func (s *EmailService) checkConfirmed(ctx context.Context, id int64, address string) error {
	if id == models.EmailIDNotSet {
		return common.ErrorNotVerified
	}
	rec, err := s.repomanager.EmailRecords(s.db).Find(ctx, id, s.now())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotVerified
		}
		return err
	}
	if !rec.IsVerified || !cryptox.Equal(rec.Hash, cryptox.HashEmail(address, rec.Salt)) {
		return common.ErrorNotVerified
	}
	return nil
}

// ForwardBackupEmail mails the CSV attached to data, but only to an address
// the user confirmed earlier.
func (s *EmailService) ForwardBackupEmail(ctx context.Context, data models.EmailData) error {
	if err := s.checkConfirmed(ctx, data.EmailID, data.EmailAddress); err != nil {
		return err
	}

	name := fmt.Sprintf("JoozdlogBackup - %s.csv", s.now().Format("2006-01-02_1504"))
	err := s.mailer.Send(ctx, mail.Message{
		To:      data.EmailAddress,
		Subject: "Joozdlog Backup CSV",
		Text: "Your Joozdlog Backup CSV file.\n\n" +
			"Just open this on a device with Joozdlog installed and you can import or replace all flights into your app.",
		Attachment: &mail.Attachment{
			Name:        name,
			ContentType: "text/csv",
			Data:        data.Attachment,
		},
	})
	if err != nil {
		return fmt.Errorf("send backup: %w", err)
	}
	s.logger.Info(ctx, "backup mail sent", "email_id", data.EmailID, "bytes", len(data.Attachment))
	return nil
}

// SendLoginLink mails a link carrying username and key.
func (s *EmailService) SendLoginLink(ctx context.Context, username string, key []byte, address string) error {
	link := LoginLinkPrefix + username + ":" + base64.StdEncoding.EncodeToString(key)
	return s.mailer.Send(ctx, mail.Message{
		To:      strings.TrimSpace(address),
		Subject: "Joozdlog Login Link",
		Text:    "Open this link with the JoozdLog app to log in on a new device:\n\n" + link + "\n\nEnjoy,\nJoozd",
	})
}

// SendTestEmail mails the configured admin address.
func (s *EmailService) SendTestEmail(ctx context.Context) error {
	if s.adminAddress == "" {
		return fmt.Errorf("%w: no admin address configured", common.ErrorInvalidEmail)
	}
	return s.mailer.Send(ctx, mail.Message{
		To:      s.adminAddress,
		Subject: "Joozdlog Test email",
		Text:    "Test mail sent at " + s.now().UTC().Format(time.RFC3339),
	})
}

// PurgeStale deletes unverified records nobody touched for the record
// validity period.
func (s *EmailService) PurgeStale(ctx context.Context) (int64, error) {
	n, err := s.repomanager.EmailRecords(s.db).DeleteStaleUnverified(ctx, s.now().Add(-s.recordValidity))
	if err != nil {
		return 0, fmt.Errorf("error purging email records: %w", err)
	}
	if n > 0 {
		s.logger.Info(ctx, "purged unverified email records", "count", n)
	}
	return n, nil
}

// Run calls PurgeStale every interval until ctx is done.
func (s *EmailService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.PurgeStale(ctx); err != nil {
				s.logger.Error(ctx, "email record purge failed", "error", err)
			}
		}
	}
}
