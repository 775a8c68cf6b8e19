package account

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"github.com/google/uuid"

	"github.com/zmeiler/Zach-scripty/server/internal/model"
	"github.com/zmeiler/Zach-scripty/server/internal/utils"
)

var (
	ErrNotFound        = errors.New("account: not found")
	ErrCorrupt         = errors.New("account: corrupt record")
	ErrInvalidPassword = errors.New("account: invalid password")
	ErrHashing         = errors.New("account: credential derivation failed")
	ErrNoGuestName     = errors.New("account: no free guest name")
)

// guestAttempts bounds the re-rolls when a guest name is already registered.
const guestAttempts = 20

// Starting kit granted to a newly created account.
var startingKit = []model.ItemStack{
	{Type: model.ItemCoin, Amount: 50},
	{Type: model.ItemBread, Amount: 2},
	{Type: model.ItemBronzeAxe, Amount: 1},
	{Type: model.ItemBronzePickaxe, Amount: 1},
}

// Store creates, authenticates and persists accounts over a Backend.
// Operations on the same username are serialized.
type Store struct {
	backend    Backend
	iterations int

	mu    sync.Mutex
	locks map[string]*userLock
	// staged holds records whose save is queued but not yet written.
	staged map[string]*Record
	rng    *rand.Rand
}

// userLock is dropped from Store.locks when its last holder or waiter leaves.
type userLock struct {
	mu   sync.Mutex
	refs int
}

type Option func(*Store)

// WithIterations overrides the PBKDF2 work factor.
func WithIterations(n int) Option {
	return func(s *Store) { s.iterations = n }
}

// WithRand fixes the source used for guest names.
func WithRand(r *rand.Rand) Option {
	return func(s *Store) { s.rng = r }
}

func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend:    backend,
		iterations: DefaultIterations,
		locks:      make(map[string]*userLock),
		staged:     make(map[string]*Record),
		rng:        rand.New(rand.NewSource(rand.Int63())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) lock(username string) func() {
	key := SanitizeUsername(username)
	s.mu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &userLock{}
		s.locks[key] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, key)
		}
		s.mu.Unlock()
	}
}

// Stage marks rec as the newest progress for its account until Save writes
// it. Loads in the meantime return a copy of rec instead of the stored record.
func (s *Store) Stage(rec *Record) {
	s.mu.Lock()
	s.staged[SanitizeUsername(rec.Username)] = rec
	s.mu.Unlock()
}

func (s *Store) stagedRecord(username string) (*Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.staged[SanitizeUsername(username)]
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

// Load reads and decodes a record, returning ErrNotFound if absent.
func (s *Store) Load(ctx context.Context, username string) (*Record, error) {
	unlock := s.lock(username)
	defer unlock()
	return s.load(ctx, username)
}

func (s *Store) load(ctx context.Context, username string) (*Record, error) {
	if rec, ok := s.stagedRecord(username); ok {
		return rec, nil
	}
	data, err := s.backend.Load(ctx, username)
	if err != nil {
		return nil, err
	}
	rec, err := ParseRecord(data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", username, err)
	}
	if rec.Username == "" {
		rec.Username = username
	}
	return rec, nil
}

// Create derives a credential for a new account, grants the starting kit and
// persists it. Hit points start full.
func (s *Store) Create(ctx context.Context, username, password, appearance string) (*Record, error) {
	unlock := s.lock(username)
	defer unlock()
	return s.create(ctx, username, password, appearance)
}

func (s *Store) create(ctx context.Context, username, password, appearance string) (*Record, error) {
	salt, err := newSalt()
	if err != nil {
		return nil, err
	}
	hash, err := hashPassword(password, salt, s.iterations)
	if err != nil {
		return nil, err
	}
	rec := NewRecord(username)
	rec.Salt = salt
	rec.PasswordHash = hash
	rec.HP = rec.Skills.MaxHP()
	if appearance != "" {
		rec.Appearance = appearance
	}
	for _, st := range startingKit {
		rec.Inventory.Add(st.Type, st.Amount)
	}
	if err := s.save(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Verify checks password against the stored hash and salt.
func (s *Store) Verify(rec *Record, password string) (bool, error) {
	return verifyPassword(rec, password, s.iterations)
}

// Save persists rec. The stored hash and salt are written as held; they are
// never re-derived.
func (s *Store) Save(ctx context.Context, rec *Record) error {
	unlock := s.lock(rec.Username)
	defer unlock()
	return s.save(ctx, rec)
}

func (s *Store) save(ctx context.Context, rec *Record) error {
	data, err := rec.Marshal()
	if err != nil {
		return fmt.Errorf("encode %s: %w", rec.Username, err)
	}
	if err := s.backend.Save(ctx, rec.Username, data); err != nil {
		return err
	}
	// A newer record staged meanwhile stays in place.
	key := SanitizeUsername(rec.Username)
	s.mu.Lock()
	if s.staged[key] == rec {
		delete(s.staged, key)
	}
	s.mu.Unlock()
	return nil
}

// Credentials is what a client presents to log in.
type Credentials struct {
	Username   string
	Password   string
	Appearance string
	Guest      bool
}

// Authenticate resolves credentials to a record. Guests get a fresh account
// under an unused generated name. Unknown usernames are registered on the
// spot; known ones must match their password (ErrInvalidPassword otherwise).
func (s *Store) Authenticate(ctx context.Context, c Credentials) (*Record, error) {
	if c.Guest {
		return s.createGuest(ctx, c.Appearance)
	}
	unlock := s.lock(c.Username)
	defer unlock()

	rec, err := s.load(ctx, c.Username)
	switch {
	case errors.Is(err, ErrNotFound):
		return s.create(ctx, c.Username, c.Password, c.Appearance)
	case err != nil:
		return nil, err
	}
	ok, err := s.Verify(rec, c.Password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidPassword
	}
	if c.Appearance != "" {
		rec.Appearance = c.Appearance
	}
	return rec, nil
}

// createGuest never hands out an existing account: a generated name that is
// already registered is rolled again.
func (s *Store) createGuest(ctx context.Context, appearance string) (*Record, error) {
	for range guestAttempts {
		username, password := s.guestIdentity()
		rec, err := s.createIfAbsent(ctx, username, password, appearance)
		if err != nil || rec != nil {
			return rec, err
		}
		utils.LogDebugf("Guest name %s is taken, rolling again", username)
	}
	return nil, ErrNoGuestName
}

// createIfAbsent returns a nil record when username already exists.
func (s *Store) createIfAbsent(ctx context.Context, username, password, appearance string) (*Record, error) {
	unlock := s.lock(username)
	defer unlock()
	_, err := s.load(ctx, username)
	switch {
	case errors.Is(err, ErrNotFound):
		return s.create(ctx, username, password, appearance)
	case err != nil:
		return nil, err
	}
	return nil, nil
}

func (s *Store) guestIdentity() (string, string) {
	s.mu.Lock()
	n := 1000 + s.rng.Intn(9000)
	s.mu.Unlock()
	return fmt.Sprintf("Guest%d", n), uuid.NewString()
}

func (s *Store) Close() error {
	return s.backend.Close()
}
