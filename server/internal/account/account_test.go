package account

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/zmeiler/Zach-scripty/server/internal/model"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	backend, err := NewFileBackend(dir)
	if err != nil {
		t.Fatalf("NewFileBackend: %v", err)
	}
	return NewStore(backend, WithIterations(1000), WithRand(rand.New(rand.NewSource(1)))), dir
}

func TestSanitizeUsername(t *testing.T) {
	cases := map[string]string{
		"alice":         "alice",
		"Bob_the-2nd":   "Bob_the-2nd",
		"../etc/passwd": "___etc_passwd",
		"a b.c":         "a_b_c",
	}
	for in, want := range cases {
		if got := SanitizeUsername(in); got != want {
			t.Errorf("SanitizeUsername(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCreateGrantsStartingKit(t *testing.T) {
	store, dir := newTestStore(t)
	rec, err := store.Create(context.Background(), "alice", "secret", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.Inventory.Count(model.ItemCoin) != 50 || rec.Inventory.Count(model.ItemBread) != 2 ||
		rec.Inventory.Count(model.ItemBronzeAxe) != 1 || rec.Inventory.Count(model.ItemBronzePickaxe) != 1 {
		t.Fatalf("unexpected starting kit %+v", rec.Inventory.Items())
	}
	if rec.HP != 100 || rec.X != DefaultX || rec.Y != DefaultY || rec.Appearance != DefaultAppearance {
		t.Fatalf("unexpected starting state %+v", rec)
	}
	if _, err := os.Stat(filepath.Join(dir, "alice.json")); err != nil {
		t.Fatalf("record not written: %v", err)
	}
}

func TestVerifyPassword(t *testing.T) {
	store, _ := newTestStore(t)
	rec, err := store.Create(context.Background(), "bob", "hunter2", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.Salt == "" || rec.PasswordHash == "" || strings.Contains(rec.PasswordHash, "hunter2") {
		t.Fatalf("credential not derived: %+v", rec)
	}
	if ok, err := store.Verify(rec, "hunter2"); err != nil || !ok {
		t.Fatalf("expected correct password to verify, got %v %v", ok, err)
	}
	if ok, _ := store.Verify(rec, "hunter3"); ok {
		t.Fatalf("wrong password verified")
	}
	rec.Salt = "%%%not-base64"
	if _, err := store.Verify(rec, "hunter2"); !errors.Is(err, ErrHashing) {
		t.Fatalf("expected ErrHashing, got %v", err)
	}
}

func TestRecordRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	rec, err := store.Create(ctx, "carol", "pw", "body:2;hair:1;color:4")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	rec.X, rec.Y, rec.HP = 12, 77, 63
	rec.Skills.Set(model.SkillWoodcutting, 5, 1300)
	rec.Inventory.Add(model.ItemLog, 9)
	rec.Inventory.Remove(model.ItemBread, 2)
	rec.Equipment.Set(model.SlotWeapon, model.ItemBronzeSword)
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Load(ctx, "carol")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.X != 12 || got.Y != 77 || got.HP != 63 || got.Appearance != "body:2;hair:1;color:4" {
		t.Fatalf("scalar mismatch %+v", got)
	}
	if got.PasswordHash != rec.PasswordHash || got.Salt != rec.Salt {
		t.Fatalf("credential changed on save")
	}
	if got.Skills != rec.Skills || got.Equipment != rec.Equipment {
		t.Fatalf("skills or equipment mismatch")
	}
	want := rec.Inventory.Items()
	items := got.Inventory.Items()
	if len(items) != len(want) {
		t.Fatalf("inventory mismatch: %+v vs %+v", items, want)
	}
	for i := range want {
		if items[i] != want[i] {
			t.Fatalf("stack %d: %+v vs %+v", i, items[i], want[i])
		}
	}
}

func TestParseRecordDefaults(t *testing.T) {
	rec, err := ParseRecord([]byte(`{"username":"dave","skills":{"MINING":3},"inventory":[{"type":"ORE","amount":4},{"type":"DRAGON_BONE","amount":1}],"equipment":{"ARMOR":"BRONZE_ARMOR"}}`))
	if err != nil {
		t.Fatalf("ParseRecord: %v", err)
	}
	if rec.X != 40 || rec.Y != 40 || rec.HP != 50 || rec.Appearance != DefaultAppearance {
		t.Fatalf("defaults not applied: %+v", rec)
	}
	if rec.Skills.Level(model.SkillMining) != 3 || rec.Skills.Level(model.SkillHitpoints) != 10 {
		t.Fatalf("skill defaults wrong")
	}
	if rec.Inventory.Count(model.ItemOre) != 4 || len(rec.Inventory.Items()) != 1 {
		t.Fatalf("unexpected inventory %+v", rec.Inventory.Items())
	}
	if rec.Equipment.Get(model.SlotArmor) != model.ItemBronzeArmor || rec.Equipment.Equipped(model.SlotWeapon) {
		t.Fatalf("unexpected equipment %+v", rec.Equipment)
	}
	if _, err := ParseRecord([]byte(`{"username":`)); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	rec, err := store.Authenticate(ctx, Credentials{Username: "erin", Password: "pw"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if rec.Username != "erin" {
		t.Fatalf("unexpected username %q", rec.Username)
	}
	if _, err := store.Authenticate(ctx, Credentials{Username: "erin", Password: "nope"}); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
	again, err := store.Authenticate(ctx, Credentials{Username: "erin", Password: "pw", Appearance: "body:9;hair:9;color:9"})
	if err != nil {
		t.Fatalf("re-login: %v", err)
	}
	if again.Appearance != "body:9;hair:9;color:9" {
		t.Fatalf("appearance override not applied")
	}

	guest, err := store.Authenticate(ctx, Credentials{Guest: true})
	if err != nil {
		t.Fatalf("guest: %v", err)
	}
	if !strings.HasPrefix(guest.Username, "Guest") || len(guest.Username) != len("Guest")+4 {
		t.Fatalf("unexpected guest name %q", guest.Username)
	}
}

func TestCachedBackendServesFromMemory(t *testing.T) {
	dir := t.TempDir()
	files, err := NewFileBackend(dir)
	if err != nil {
		t.Fatalf("NewFileBackend: %v", err)
	}
	mem, err := NewMemoryCache(1<<20, time.Minute)
	if err != nil {
		t.Fatalf("NewMemoryCache: %v", err)
	}
	cached := NewCachedBackend(files, mem)
	defer cached.Close()
	ctx := context.Background()

	if err := cached.Save(ctx, "frank", []byte(`{"username":"frank"}`)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	// Remove the file: the read must now come from the cache tier.
	if err := os.Remove(filepath.Join(dir, "frank.json")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	data, err := cached.Load(ctx, "frank")
	if err != nil || string(data) != `{"username":"frank"}` {
		t.Fatalf("expected cached record, got %q %v", data, err)
	}
	if _, err := cached.Load(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// zeroSource makes every guest roll land on Guest1000.
type zeroSource struct{}

func (zeroSource) Int63() int64 { return 0 }
func (zeroSource) Seed(int64)   {}

func TestGuestNeverReusesRegisteredName(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	// newTestStore seeds its guest rolls with 1.
	first := fmt.Sprintf("Guest%d", 1000+rand.New(rand.NewSource(1)).Intn(9000))
	if _, err := store.Create(ctx, first, "secret", ""); err != nil {
		t.Fatalf("Create: %v", err)
	}

	guest, err := store.Authenticate(ctx, Credentials{Guest: true})
	if err != nil {
		t.Fatalf("guest: %v", err)
	}
	if guest.Username == first {
		t.Fatalf("guest was handed the registered account %q", first)
	}
	if _, err := store.Authenticate(ctx, Credentials{Username: first, Password: "secret"}); err != nil {
		t.Fatalf("registered account disturbed: %v", err)
	}
}

func TestGuestGivesUpWhenNamesAreTaken(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileBackend: %v", err)
	}
	store := NewStore(backend, WithIterations(1000), WithRand(rand.New(zeroSource{})))
	ctx := context.Background()
	if _, err := store.Create(ctx, "Guest1000", "secret", ""); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := store.Authenticate(ctx, Credentials{Guest: true}); !errors.Is(err, ErrNoGuestName) {
		t.Fatalf("expected ErrNoGuestName, got %v", err)
	}
}

func TestUsernameLocksAreReleased(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Authenticate(ctx, Credentials{Username: "ivan", Password: "pw"})
			store.Authenticate(ctx, Credentials{Username: fmt.Sprintf("user%d", i), Password: "pw"})
			store.Authenticate(ctx, Credentials{Username: "ivan", Password: "wrong"})
			store.Authenticate(ctx, Credentials{Guest: true})
		}()
	}
	wg.Wait()

	store.mu.Lock()
	defer store.mu.Unlock()
	if n := len(store.locks); n != 0 {
		t.Fatalf("%d username locks left behind", n)
	}
}

func TestStagedRecordServedUntilSaved(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	rec, err := store.Create(ctx, "gina", "pw", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	older := rec.Clone()
	older.X = 7
	newer := rec.Clone()
	newer.X = 9
	store.Stage(older)
	store.Stage(newer)

	got, err := store.Load(ctx, "gina")
	if err != nil || got.X != 9 {
		t.Fatalf("expected the newest staged record, got %+v %v", got, err)
	}
	got.Inventory.Add(model.ItemLog, 1)
	if newer.Inventory.Count(model.ItemLog) != 0 {
		t.Fatalf("Load must return a copy of the staged record")
	}

	// The older save lands late; the newer record stays staged.
	if err := store.Save(ctx, older); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if got, _ := store.Load(ctx, "gina"); got.X != 9 {
		t.Fatalf("late save unstaged the newer record: x=%d", got.X)
	}

	if err := store.Save(ctx, newer); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if n := len(store.staged); n != 0 {
		t.Fatalf("%d records still staged after saving", n)
	}
	if got, _ := store.Load(ctx, "gina"); got.X != 9 {
		t.Fatalf("stored record x=%d, want 9", got.X)
	}
}

type flakyCache struct {
	entries map[string][]byte
	failSet bool
}

func (c *flakyCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	data, ok := c.entries[key]
	return data, ok, nil
}

func (c *flakyCache) Set(_ context.Context, key string, data []byte) error {
	if c.failSet {
		return errors.New("cache unavailable")
	}
	c.entries[key] = data
	return nil
}

func (c *flakyCache) Delete(_ context.Context, key string) error {
	delete(c.entries, key)
	return nil
}

func (c *flakyCache) Close() error { return nil }

func TestCachedBackendDropsEntryWhenUpdateFails(t *testing.T) {
	files, err := NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileBackend: %v", err)
	}
	cache := &flakyCache{entries: make(map[string][]byte)}
	cached := NewCachedBackend(files, cache)
	ctx := context.Background()

	if err := cached.Save(ctx, "hank", []byte(`{"username":"hank","x":1}`)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	cache.failSet = true
	if err := cached.Save(ctx, "hank", []byte(`{"username":"hank","x":2}`)); err != nil {
		t.Fatalf("Save must succeed when only the cache fails: %v", err)
	}
	if _, ok := cache.entries[cacheKey("hank")]; ok {
		t.Fatalf("stale cache entry survived a failed update")
	}
	data, err := cached.Load(ctx, "hank")
	if err != nil || string(data) != `{"username":"hank","x":2}` {
		t.Fatalf("expected the new record, got %q %v", data, err)
	}
}
