package proofcache

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/surgeon/internal/canon"
)

const keyPrefix = "proof/"

// Certificate records a verified improvement of the term with the given soul.
type Certificate struct {
	Soul         string
	Original     string
	Transformed  string
	Rules        []string
	InitialScore float64
	FinalScore   float64
	// Fingerprint identifies the rule set and weights the result was
	// produced under. Certificates from another configuration are ignored.
	Fingerprint string
	CreatedAt   time.Time
}

// Config configures a Store.
type Config struct {
	// Dir holds the database files. Ignored when InMemory is set.
	Dir      string
	InMemory bool
	// MaxAge expires certificates; zero keeps them forever.
	MaxAge time.Duration
	Logger *zap.Logger
}

// Store is a persistent soul -> certificate map. It is safe for concurrent use.
type Store struct {
	db     *badger.DB
	maxAge time.Duration
	logger *zap.Logger
	now    func() time.Time
}

type badgerLogger struct {
	logger *zap.SugaredLogger
}

func (l badgerLogger) Errorf(format string, args ...any)   { l.logger.Errorf(format, args...) }
func (l badgerLogger) Warningf(format string, args ...any) { l.logger.Warnf(format, args...) }
func (l badgerLogger) Infof(format string, args ...any)    { l.logger.Debugf(format, args...) }
func (l badgerLogger) Debugf(format string, args ...any)   { l.logger.Debugf(format, args...) }

// Open opens or creates a store.
func Open(cfg Config) (*Store, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Dir == "" {
			return nil, errors.New("proof cache directory is required")
		}
		if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create proof cache directory: %w", err)
		}
		opts = badger.DefaultOptions(cfg.Dir)
	}
	opts = opts.WithNumVersionsToKeep(1).WithLogger(badgerLogger{logger: logger.Named("badger").Sugar()})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open proof cache: %w", err)
	}
	return &Store{db: db, maxAge: cfg.MaxAge, logger: logger, now: time.Now}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func key(soul canon.Soul) []byte {
	return []byte(keyPrefix + soul.String())
}

// Put stores cert under its soul, replacing any previous certificate.
func (s *Store) Put(cert Certificate) error {
	soul, err := canon.ParseSoul(cert.Soul)
	if err != nil {
		return fmt.Errorf("invalid certificate: %w", err)
	}
	if cert.CreatedAt.IsZero() {
		cert.CreatedAt = s.now()
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(cert); err != nil {
		return fmt.Errorf("failed to encode certificate: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(key(soul), buf.Bytes())
		if s.maxAge > 0 {
			e = e.WithTTL(s.maxAge)
		}
		return txn.SetEntry(e)
	})
}

// Get returns the certificate for soul if one exists for fingerprint.
func (s *Store) Get(soul canon.Soul, fingerprint string) (Certificate, bool, error) {
	var cert Certificate
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(soul))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return gob.NewDecoder(bytes.NewReader(val)).Decode(&cert)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Certificate{}, false, nil
	}
	if err != nil {
		return Certificate{}, false, fmt.Errorf("failed to read certificate: %w", err)
	}

	if cert.Fingerprint != fingerprint {
		s.logger.Debug("ignoring certificate from another configuration",
			zap.String("soul", soul.Short()))
		return Certificate{}, false, nil
	}
	return cert, true, nil
}

// Delete removes the certificate for soul.
func (s *Store) Delete(soul canon.Soul) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(soul))
	})
}

// Len counts the stored certificates.
func (s *Store) Len() (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}
