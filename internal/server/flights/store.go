package flights

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/flightkeeper/internal/common"
	"github.com/dmitrijs2005/flightkeeper/internal/cryptox"
	"github.com/dmitrijs2005/flightkeeper/internal/filex"
	"github.com/dmitrijs2005/flightkeeper/internal/logging"
	"github.com/dmitrijs2005/flightkeeper/internal/server/models"
	"github.com/spf13/afero"
)

var (
	ErrWrongKey  = errors.New("unknown user or wrong key")
	ErrCorrupt   = errors.New("corrupt flights file")
	ErrNotLoaded = errors.New("flights file not loaded")
)

const (
	// HeaderSize is hash + version + timestamp.
	HeaderSize = cryptox.HashSize + 4 + 8

	// EmptyVersion marks a file without a flights payload.
	EmptyVersion int32 = 0
)

// Storage opens and creates user files below one directory.
type Storage struct {
	fs       afero.Fs
	dir      string
	upgrader Upgrader
	locks    *UserLocks
	logger   logging.Logger
	now      func() time.Time
}

func NewStorage(fs afero.Fs, dir string, upgrader Upgrader, logger logging.Logger) (*Storage, error) {
	if err := filex.EnsureDir(fs, dir); err != nil {
		return nil, err
	}
	return &Storage{
		fs:       fs,
		dir:      dir,
		upgrader: upgrader,
		locks:    NewUserLocks(),
		logger:   logger,
		now:      time.Now,
	}, nil
}

// path maps username to its file. Names that could pass for another user's
// backup are refused.
func (s *Storage) path(username string) (string, error) {
	if strings.Contains(strings.ToLower(username), BackupSuffix) {
		return "", fmt.Errorf("%w: username %q contains %q", common.ErrorBadData, username, BackupSuffix)
	}
	p, err := filex.Join(s.dir, username)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrorBadData, err)
	}
	return p, nil
}

// Exists reports whether a file for username is present.
func (s *Storage) Exists(username string) (bool, error) {
	p, err := s.path(username)
	if err != nil {
		return false, err
	}
	return afero.Exists(s.fs, p)
}

// Open returns the store for login after restoring any backup left by an
// interrupted write. The key is not checked here; see Store.CorrectKey.
func (s *Storage) Open(ctx context.Context, login models.LoginData) (*Store, error) {
	p, err := s.path(login.Username)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(login.Username)
	restored, err := recoverBackups(s.fs, p)
	unlock()
	if err != nil {
		return nil, fmt.Errorf("recover backups: %w", err)
	}
	if restored {
		s.logger.Warn(ctx, "restored user file from backup", "user", login.Username)
	}

	return s.newStore(login, p), nil
}

func (s *Storage) newStore(login models.LoginData, path string) *Store {
	return &Store{
		storage: s,
		login:   login,
		path:    path,
		hash:    cryptox.HashWithExtraSalt(login.Username, login.Key),
		logger:  s.logger.With("user", login.Username),
	}
}

// Create writes an empty logbook for a new user. It fails with
// common.ErrorAlreadyExists when the name is taken.
func (s *Storage) Create(ctx context.Context, login models.LoginData) (*Store, error) {
	p, err := s.path(login.Username)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(login.Username)
	defer unlock()

	st := s.newStore(login, p)
	ts := s.now().Unix()

	f, err := s.fs.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o660)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("create %s: %w", p, err)
	}
	_, werr := f.Write(encodeHeader(st.hash, EmptyVersion, ts))
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		_ = s.fs.Remove(p)
		return nil, fmt.Errorf("write %s: %w", p, werr)
	}

	st.keyChecked, st.keyOK = true, true
	st.file = newFlightsFile(ts, nil)
	s.logger.Info(ctx, "user created", "user", login.Username)
	return st, nil
}

// Rekey stores the flights of st under newKey and returns the store for
// the new credentials. The old file is replaced with the usual backup
// sequence, so either the old or the new key works after a crash.
func (s *Storage) Rekey(ctx context.Context, st *Store, newKey []byte) (*Store, error) {
	if !st.CorrectKey() {
		return nil, ErrWrongKey
	}
	ff, err := st.Load(ctx)
	if err != nil {
		return nil, err
	}

	login := st.login
	login.Key = append([]byte(nil), newKey...)

	ns := s.newStore(login, st.path)
	ns.keyChecked, ns.keyOK = true, true
	ns.file = newFlightsFile(s.now().Unix(), ff.Flights)
	if err := ns.WriteFlightsToDisk(ctx); err != nil {
		return nil, fmt.Errorf("rewrite under new key: %w", err)
	}
	s.logger.Info(ctx, "key changed", "user", login.Username)
	return ns, nil
}

// Store is one user's logbook for the lifetime of a session.
type Store struct {
	storage *Storage
	login   models.LoginData
	path    string
	hash    []byte
	logger  logging.Logger

	keyChecked bool
	keyOK      bool
	file       *FlightsFile
}

func (st *Store) Username() string {
	return st.login.Username
}

// ResponseVersion is the schema flights are sent back in: the one the client
// asked for when supported, else the current one.
func (st *Store) ResponseVersion() int32 {
	if models.SupportedFlightVersion(st.login.SchemaVersion) {
		return st.login.SchemaVersion
	}
	return models.CurrentFlightVersion
}

// CorrectKey reports whether the file exists and starts with the hash of the
// session credentials. The answer is cached.
func (st *Store) CorrectKey() bool {
	if st.keyChecked {
		return st.keyOK
	}
	st.keyChecked = true
	st.keyOK = st.checkKey()
	return st.keyOK
}

func (st *Store) checkKey() bool {
	unlock := st.storage.locks.Lock(st.login.Username)
	defer unlock()

	f, err := st.storage.fs.Open(st.path)
	if err != nil {
		return false
	}
	defer f.Close()

	stored := make([]byte, cryptox.HashSize)
	if _, err := io.ReadFull(f, stored); err != nil {
		return false
	}
	return cryptox.Equal(stored, st.hash)
}

func (st *Store) IsLoaded() bool {
	return st.file != nil
}

// Load reads and decrypts the file once; later calls return the cached
// result. A wrong key yields ErrWrongKey, anything unreadable ErrCorrupt.
func (st *Store) Load(ctx context.Context) (*FlightsFile, error) {
	if st.file != nil {
		return st.file, nil
	}
	if !st.CorrectKey() {
		return nil, ErrWrongKey
	}

	unlock := st.storage.locks.Lock(st.login.Username)
	data, err := afero.ReadFile(st.storage.fs, st.path)
	unlock()
	if err != nil {
		st.logger.Error(ctx, "read user file", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	ff, err := st.decode(data)
	if err != nil {
		st.logger.Error(ctx, "load user file", "error", err)
		return nil, err
	}
	st.file = ff
	return ff, nil
}

func (st *Store) decode(data []byte) (*FlightsFile, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrCorrupt, len(data))
	}
	if !cryptox.Equal(data[:cryptox.HashSize], st.hash) {
		return nil, ErrWrongKey
	}

	version := int32(binary.BigEndian.Uint32(data[cryptox.HashSize:]))
	ts := int64(binary.BigEndian.Uint64(data[cryptox.HashSize+4:]))
	if version == EmptyVersion {
		return newFlightsFile(ts, nil), nil
	}

	res := cryptox.Decrypt(st.login.Key, data[HeaderSize:])
	if !res.OK {
		return nil, fmt.Errorf("%w: decrypt failed", ErrCorrupt)
	}
	flights, err := st.storage.upgrader.Upgrade(res.Plaintext, version)
	if err != nil {
		return nil, fmt.Errorf("%w: version %d: %w", ErrCorrupt, version, err)
	}
	return newFlightsFile(ts, flights), nil
}

// AddFlights merges flights into the loaded file and bumps its timestamp.
// Nothing is written; call WriteFlightsToDisk for that.
func (st *Store) AddFlights(flights []models.Flight) (int, error) {
	if st.file == nil {
		return 0, ErrNotLoaded
	}
	n := st.file.Merge(flights)
	st.file.Timestamp = st.storage.now().Unix()
	return n, nil
}

// SetTimestamp overrides the timestamp of the loaded file.
func (st *Store) SetTimestamp(ts int64) error {
	if st.file == nil {
		return ErrNotLoaded
	}
	st.file.Timestamp = ts
	return nil
}

// WriteFlightsToDisk encrypts the loaded flights and replaces the user file.
func (st *Store) WriteFlightsToDisk(ctx context.Context) error {
	if st.file == nil {
		return ErrNotLoaded
	}

	payload := models.PackFlights(st.file.Flights, models.CurrentFlightVersion)
	ct, err := cryptox.Encrypt(st.login.Key, payload)
	if err != nil {
		return fmt.Errorf("encrypt: %w", err)
	}
	data := append(encodeHeader(st.hash, models.CurrentFlightVersion, st.file.Timestamp), ct...)

	unlock := st.storage.locks.Lock(st.login.Username)
	defer unlock()

	if err := replaceFile(st.storage.fs, st.path, data); err != nil {
		st.logger.Error(ctx, "write user file", "error", err)
		return err
	}
	st.logger.Debug(ctx, "user file written", "flights", len(st.file.Flights))
	return nil
}

// RemoveDuplicates drops repeated flight ids and persists the result.
func (st *Store) RemoveDuplicates(ctx context.Context) error {
	if st.file == nil {
		return ErrNotLoaded
	}
	if n := st.file.RemoveDuplicates(); n > 0 {
		st.logger.Info(ctx, "removed duplicate flights", "count", n)
	}
	return st.WriteFlightsToDisk(ctx)
}

// Close wipes the session key and drops the cached flights. The store is
// unusable afterwards.
func (st *Store) Close() {
	common.WipeByteArray(st.login.Key)
	st.file = nil
	st.keyChecked, st.keyOK = true, false
}

func encodeHeader(hash []byte, version int32, ts int64) []byte {
	out := make([]byte, 0, HeaderSize)
	out = append(out, hash...)
	out = binary.BigEndian.AppendUint32(out, uint32(version))
	return binary.BigEndian.AppendUint64(out, uint64(ts))
}
