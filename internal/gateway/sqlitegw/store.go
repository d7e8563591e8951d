// Package sqlitegw is a GORM-backed SQLite implementation of the data
// gateway: the full CRUD surface plus refetch-on-change subscriptions driven
// by an in-process notifier. It gives the client the same at-least-once,
// replace-list realtime semantics the hosted backend would.
package sqlitegw

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/tobyns/CoveChat/internal/config"
	"github.com/tobyns/CoveChat/internal/gateway"
)

// Store implements gateway.Gateway and gateway.AuthGateway.
type Store struct {
	cfg      config.Config
	db       *gorm.DB
	notifier *notifier

	typingMu sync.Mutex
	typing   map[string]*typingScope
}

// New opens the SQLite database at the configured path and migrates the schema.
func New(cfg config.Config) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(cfg.Database.Path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	s := &Store{
		cfg:      cfg,
		db:       db,
		notifier: newNotifier(),
		typing:   make(map[string]*typingScope),
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	return s.db.AutoMigrate(
		&serverModel{},
		&channelModel{},
		&messageModel{},
		&reactionModel{},
		&roleModel{},
		&membershipModel{},
		&conversationModel{},
		&directMessageModel{},
		&readStateModel{},
		&profileModel{},
		&credentialModel{},
	)
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// subscribeTopic delivers an initial snapshot and then refetches on every
// change signal. The returned func is idempotent.
func (s *Store) subscribeTopic(topic string, refetch func()) gateway.Unsubscribe {
	refetch()
	cancel := s.notifier.subscribe(topic, refetch)
	var once sync.Once
	return func() { once.Do(cancel) }
}

const inviteAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghjkmnpqrstuvwxyz23456789"

func newInviteCode() string {
	code := make([]byte, 8)
	for i := range code {
		code[i] = inviteAlphabet[rand.IntN(len(inviteAlphabet))]
	}
	return string(code)
}

var _ gateway.Gateway = (*Store)(nil)
var _ gateway.AuthGateway = (*Store)(nil)

func wrapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return gateway.ErrNotFound
	}
	return err
}
