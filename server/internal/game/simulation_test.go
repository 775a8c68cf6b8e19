package game

import (
	"context"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/zmeiler/Zach-scripty/server/internal/account"
	"github.com/zmeiler/Zach-scripty/server/internal/model"
	"github.com/zmeiler/Zach-scripty/server/internal/protocol"
	"github.com/zmeiler/Zach-scripty/server/internal/utils"
)

type recorder struct {
	msgs []protocol.Message
}

func (r *recorder) Send(msg protocol.Message)      { r.msgs = append(r.msgs, msg) }
func (r *recorder) Broadcast(msg protocol.Message) { r.msgs = append(r.msgs, msg) }

func (r *recorder) notes() []string {
	var out []string
	for _, m := range r.msgs {
		if n, ok := m.(*protocol.Notify); ok {
			out = append(out, n.Text)
		}
	}
	return out
}

func (r *recorder) hasNote(substr string) bool {
	for _, n := range r.notes() {
		if strings.Contains(n, substr) {
			return true
		}
	}
	return false
}

func (r *recorder) updates() int {
	n := 0
	for _, m := range r.msgs {
		if _, ok := m.(*protocol.PlayerUpdate); ok {
			n++
		}
	}
	return n
}

func (r *recorder) reset() { r.msgs = nil }

type fixture struct {
	sim   *Simulation
	clock *utils.ManualClock
	room  *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := utils.NewManualClock(1_000_000)
	room := &recorder{}
	sim := NewSimulation(newFlatWorld(120, 120), clock, rand.New(rand.NewSource(42)), room)
	return &fixture{sim: sim, clock: clock, room: room}
}

// join places a fresh-account player at (x, y).
func (f *fixture) join(t *testing.T, name string, x, y int) (*Player, *recorder) {
	t.Helper()
	rec := account.NewRecord(name)
	rec.X, rec.Y = x, y
	rec.HP = rec.Skills.MaxHP()
	rec.Inventory.Add(model.ItemCoin, 50)
	out := &recorder{}
	p, err := f.sim.Join(rec, "session-"+name, out)
	if err != nil {
		t.Fatalf("Join(%s): %v", name, err)
	}
	out.reset()
	return p, out
}

func (f *fixture) snapshotHas(id int32) bool {
	for _, e := range f.sim.Snapshot().Entities {
		if e.ID == id {
			return true
		}
	}
	return false
}

func TestGuestLoginStartingState(t *testing.T) {
	backend, err := account.NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileBackend: %v", err)
	}
	store := account.NewStore(backend, account.WithIterations(1000))
	rec, err := store.Authenticate(context.Background(), account.Credentials{Guest: true})
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	f := newFixture(t)
	out := &recorder{}
	if _, err := f.sim.Join(rec, "s1", out); err != nil {
		t.Fatalf("Join: %v", err)
	}
	res, ok := out.msgs[0].(*protocol.LoginResult)
	if !ok || !res.Success || res.Message != WelcomeMessage {
		t.Fatalf("expected successful LoginResult, got %+v", out.msgs[0])
	}
	if res.HP != 100 || res.MaxHP != 100 {
		t.Fatalf("expected hp=maxHp=100, got %d/%d", res.HP, res.MaxHP)
	}
	inv := res.Inventory
	if inv.Count(model.ItemCoin) != 50 || inv.Count(model.ItemBread) != 2 ||
		inv.Count(model.ItemBronzeAxe) != 1 || inv.Count(model.ItemBronzePickaxe) != 1 {
		t.Fatalf("unexpected starting inventory %+v", inv.Items())
	}
	for _, s := range model.AllSkills() {
		want := 1
		if s == model.SkillHitpoints {
			want = 10
		}
		if res.Skills.Level(s) != want {
			t.Fatalf("%v level %d, want %d", s, res.Skills.Level(s), want)
		}
	}
	if res.WorldWidth != 120 || res.X != 40 || res.Zone != "Moonlit Crossing" {
		t.Fatalf("unexpected world info %+v", res)
	}
}

func TestJoinRefusesDuplicateUsername(t *testing.T) {
	f := newFixture(t)
	f.join(t, "alice", 40, 40)
	if _, err := f.sim.Join(account.NewRecord("alice"), "s2", &recorder{}); err != ErrAlreadyOnline {
		t.Fatalf("expected ErrAlreadyOnline, got %v", err)
	}
}

func TestEntityIDsShareOneCounter(t *testing.T) {
	f := newFixture(t)
	seen := map[int32]bool{}
	for _, m := range f.sim.Monsters() {
		seen[m.ID] = true
	}
	for _, n := range f.sim.Npcs() {
		seen[n.ID] = true
	}
	for _, r := range f.sim.Resources() {
		seen[r.ID] = true
	}
	if len(seen) != 26+2+6 {
		t.Fatalf("expected 34 distinct ids, got %d", len(seen))
	}
	p, _ := f.join(t, "alice", 40, 40)
	if seen[p.ID] {
		t.Fatalf("player id %d collides with a seeded entity", p.ID)
	}
}

func TestBuyBreadRequiresProximity(t *testing.T) {
	f := newFixture(t)
	// Joran stands at (42,41); (39,41) is three tiles away.
	p, out := f.join(t, "alice", 39, 41)
	f.sim.HandleChat(p.ID, "/buy bread")
	if !out.hasNote("need to be near the shopkeeper") {
		t.Fatalf("expected proximity notice, got %v", out.notes())
	}
	if p.Inventory.Count(model.ItemCoin) != 50 || p.Inventory.Count(model.ItemBread) != 0 {
		t.Fatalf("inventory changed: %+v", p.Inventory.Items())
	}
	if out.updates() != 0 {
		t.Fatalf("no PlayerUpdate expected")
	}
}

func TestBuyBreadWithExactCoins(t *testing.T) {
	f := newFixture(t)
	p, out := f.join(t, "alice", 42, 42)
	p.Inventory.Remove(model.ItemCoin, 44)

	f.sim.HandleChat(p.ID, "/buy bread")
	if p.Inventory.Count(model.ItemCoin) != 0 || p.Inventory.Count(model.ItemBread) != 1 {
		t.Fatalf("unexpected inventory %+v", p.Inventory.Items())
	}
	for _, st := range p.Inventory.Items() {
		if st.Type == model.ItemCoin {
			t.Fatalf("empty coin stack must be deleted")
		}
	}
	if out.updates() != 1 || !out.hasNote("You buy a loaf of bread.") {
		t.Fatalf("expected purchase notice and PlayerUpdate, got %v", out.notes())
	}

	out.reset()
	f.sim.HandleChat(p.ID, "/buy bread")
	if !out.hasNote("Not enough coins.") || p.Inventory.Count(model.ItemBread) != 1 {
		t.Fatalf("second purchase should fail, got %v", out.notes())
	}
}

func TestShopCommandUsage(t *testing.T) {
	f := newFixture(t)
	p, out := f.join(t, "alice", 42, 42)
	cases := []struct {
		text string
		want string
	}{
		{"/buy", "Usage: /buy bread"},
		{"/buy sword", "The shop only sells bread right now."},
		{"/sell", "Usage: /sell log|ore|fish"},
		{"/sell gems", "I only buy logs, ore, and fish."},
		{"/sell fish", "You don't have that item."},
		{"/equip", "Usage: /equip sword|armor"},
		{"/equip hat", "Unknown equipment."},
		{"/equip sword", "You need a bronze sword."},
		{"/eat", "You have no bread."},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			out.reset()
			f.sim.HandleChat(p.ID, tc.text)
			notes := out.notes()
			if len(notes) != 1 || notes[0] != tc.want {
				t.Fatalf("got %v, want %q", notes, tc.want)
			}
		})
	}
	if p.Inventory.Count(model.ItemCoin) != 50 {
		t.Fatalf("usage errors must not change state")
	}
}

func TestSellEquipAndEat(t *testing.T) {
	f := newFixture(t)
	p, out := f.join(t, "alice", 41, 41)
	p.Inventory.Add(model.ItemLog, 2)
	p.Inventory.Add(model.ItemBronzeArmor, 1)
	p.Inventory.Add(model.ItemBread, 1)
	p.HP = 95

	f.sim.HandleChat(p.ID, "/sell LOG")
	if p.Inventory.Count(model.ItemLog) != 1 || p.Inventory.Count(model.ItemCoin) != 55 {
		t.Fatalf("sell failed: %+v", p.Inventory.Items())
	}
	f.sim.HandleChat(p.ID, "/equip armor")
	if p.Equipment.Get(model.SlotArmor) != model.ItemBronzeArmor || p.Inventory.Count(model.ItemBronzeArmor) != 0 {
		t.Fatalf("equip failed")
	}
	f.sim.HandleChat(p.ID, "/eat")
	if p.HP != 100 || p.Inventory.Count(model.ItemBread) != 0 {
		t.Fatalf("eat must heal up to max, hp=%d", p.HP)
	}
	if out.updates() != 3 {
		t.Fatalf("expected 3 PlayerUpdates, got %d", out.updates())
	}
}

func TestChatBroadcastsWithUsername(t *testing.T) {
	f := newFixture(t)
	p, _ := f.join(t, "alice", 40, 40)
	f.sim.HandleChat(p.ID, "hello there")
	if len(f.room.msgs) != 1 {
		t.Fatalf("expected one broadcast, got %d", len(f.room.msgs))
	}
	if c, ok := f.room.msgs[0].(*protocol.Chat); !ok || c.Text != "alice: hello there" {
		t.Fatalf("unexpected broadcast %+v", f.room.msgs[0])
	}
}

func TestGatherMarksNodeUnavailableUntilRespawn(t *testing.T) {
	f := newFixture(t)
	node := f.sim.Resources()[0] // Oak Tree at (35,44), 10s
	p, out := f.join(t, "alice", 35, 45)

	f.sim.HandleInteract(p.ID, node.X, node.Y)
	if p.Inventory.Count(model.ItemLog) != 1 || p.Skills.XP(model.SkillWoodcutting) != 30 {
		t.Fatalf("gather did not reward: %+v", p.Inventory.Items())
	}
	if !out.hasNote("You take log from the Oak Tree.") || out.updates() != 1 {
		t.Fatalf("unexpected notes %v", out.notes())
	}
	if node.Available(f.clock.NowMS()) || f.snapshotHas(node.ID) {
		t.Fatalf("node must be unavailable right after gathering")
	}

	f.sim.HandleInteract(p.ID, node.X, node.Y)
	if p.Inventory.Count(model.ItemLog) != 1 {
		t.Fatalf("unavailable node must not yield")
	}
	f.clock.Advance(9999 * time.Millisecond)
	if node.Available(f.clock.NowMS()) {
		t.Fatalf("node available too early")
	}
	f.clock.Advance(time.Millisecond)
	if !node.Available(f.clock.NowMS()) || !f.snapshotHas(node.ID) {
		t.Fatalf("node must be available after its respawn delay")
	}
}

func TestGatherOutOfRange(t *testing.T) {
	f := newFixture(t)
	node := f.sim.Resources()[0]
	p, out := f.join(t, "alice", node.X+2, node.Y)
	f.sim.HandleInteract(p.ID, node.X, node.Y)
	if !out.hasNote("You need to move closer.") || p.Inventory.Count(model.ItemLog) != 0 {
		t.Fatalf("expected move-closer notice, got %v", out.notes())
	}
	if !node.Available(f.clock.NowMS()) {
		t.Fatalf("failed gather must not consume the node")
	}
}

func TestTalkToShopkeeper(t *testing.T) {
	f := newFixture(t)
	p, out := f.join(t, "alice", 20, 20)
	f.sim.HandleInteract(p.ID, 42, 41)
	notes := out.notes()
	if len(notes) != 3 || notes[0] != "You talk to Joran the Trader." || notes[2] != shopHint {
		t.Fatalf("unexpected dialogue %v", notes)
	}
}

func TestMoveTakesSingleStep(t *testing.T) {
	f := newFixture(t)
	p, _ := f.join(t, "alice", 10, 10)
	f.sim.HandleMove(p.ID, 20, 10)
	if p.X != 11 || p.Y != 10 {
		t.Fatalf("expected one step to (11,10), got (%d,%d)", p.X, p.Y)
	}
	f.sim.World().set(12, 10, model.TileWater)
	f.sim.HandleMove(p.ID, 12, 10)
	if p.X != 11 || p.Y != 10 {
		t.Fatalf("move toward water must not move the player")
	}
}

func TestMonsterKillRespawnAndLoot(t *testing.T) {
	f := newFixture(t)
	m := f.sim.Monsters()[0] // Forest Imp at (30,30)
	f.sim.monsters = f.sim.monsters[:1]
	p, out := f.join(t, "alice", 31, 30)
	before := len(p.Inventory.Items()) + p.Inventory.Count(model.ItemCoin)

	for i := 0; i < 500 && m.Alive(); i++ {
		f.clock.Advance(PlayerAttackCooldownMS * time.Millisecond)
		f.sim.HandleAttack(p.ID, m.ID)
	}
	if m.Alive() {
		t.Fatalf("monster never died")
	}
	killedAt := f.clock.NowMS()
	if m.RespawnAtMS != killedAt+MonsterRespawnMS {
		t.Fatalf("respawn timer %d, want %d", m.RespawnAtMS, killedAt+MonsterRespawnMS)
	}
	if !out.hasNote("Forest Imp collapses.") {
		t.Fatalf("missing death notice")
	}
	if after := len(p.Inventory.Items()) + p.Inventory.Count(model.ItemCoin); after == before {
		t.Fatalf("no loot granted")
	}
	if p.Skills.XP(model.SkillAttack) == 0 || p.Skills.XP(model.SkillHitpoints) == 0 {
		t.Fatalf("successful hits must grant xp")
	}

	f.sim.Tick()
	if f.snapshotHas(m.ID) {
		t.Fatalf("dead monster must be absent from snapshots")
	}
	f.clock.Advance(MonsterRespawnMS * time.Millisecond)
	f.sim.Tick()
	if !m.Alive() || m.HP != m.MaxHP || m.X != m.SpawnX || m.Y != m.SpawnY || m.RespawnAtMS != 0 {
		t.Fatalf("monster did not respawn: %+v", m)
	}
	if !f.snapshotHas(m.ID) {
		t.Fatalf("respawned monster must be in snapshots")
	}
}

func TestAttackCooldownAndRange(t *testing.T) {
	f := newFixture(t)
	m := f.sim.Monsters()[0]
	f.sim.monsters = f.sim.monsters[:1]
	p, out := f.join(t, "alice", 33, 30)

	f.sim.HandleAttack(p.ID, m.ID)
	if len(out.notes()) != 0 {
		t.Fatalf("out-of-range attack must be silent")
	}
	p.X = 31
	f.sim.HandleAttack(p.ID, m.ID)
	f.clock.Advance(500 * time.Millisecond)
	f.sim.HandleAttack(p.ID, m.ID)
	if n := len(out.notes()); n < 1 || !strings.HasPrefix(out.notes()[0], "You") {
		t.Fatalf("expected exactly one resolved swing, got %v", out.notes())
	}
	swings := 0
	for _, n := range out.notes() {
		if strings.HasPrefix(n, "You hit") || strings.HasPrefix(n, "You miss") {
			swings++
		}
	}
	if swings != 1 {
		t.Fatalf("attack inside cooldown must be ignored, saw %d swings", swings)
	}
}

func TestMonsterChasesAndAttacks(t *testing.T) {
	f := newFixture(t)
	m := f.sim.Monsters()[0] // (30,30)
	f.sim.monsters = f.sim.monsters[:1]
	p, out := f.join(t, "alice", 33, 30)

	f.sim.Tick()
	if m.X != 31 || m.Y != 30 {
		t.Fatalf("monster should step toward player, at (%d,%d)", m.X, m.Y)
	}
	f.sim.Tick()
	if m.X != 32 {
		t.Fatalf("monster should close in, at (%d,%d)", m.X, m.Y)
	}
	f.sim.Tick() // adjacent: first swing
	f.clock.Advance(200 * time.Millisecond)
	f.sim.Tick() // still cooling down
	swings := 0
	for _, n := range out.notes() {
		if strings.HasPrefix(n, "Forest Imp") {
			swings++
		}
	}
	if swings != 1 {
		t.Fatalf("expected one monster swing, got %v", out.notes())
	}

	p.X, p.Y = 80, 80
	mx, my := m.X, m.Y
	f.sim.Tick()
	if m.X != mx || m.Y != my {
		t.Fatalf("monster must ignore players outside aggro radius")
	}
}

func TestDefeatedPlayerWakesAtSpawn(t *testing.T) {
	f := newFixture(t)
	p, out := f.join(t, "alice", 70, 70)
	p.HP = 0
	f.sim.Tick()
	if p.HP != p.MaxHP || p.X != SpawnPoint.X || p.Y != SpawnPoint.Y {
		t.Fatalf("player not restored: hp=%d at (%d,%d)", p.HP, p.X, p.Y)
	}
	if !out.hasNote("You wake up back in Oakridge with your wounds mended.") {
		t.Fatalf("missing wake-up notice")
	}
}

func TestLadderTeleportsOncePerArrival(t *testing.T) {
	f := newFixture(t)
	p, out := f.join(t, "alice", 91, 31)
	f.sim.HandleMove(p.ID, 91, 30)
	if p.X != 91 || p.Y != 30 {
		t.Fatalf("expected to stand on the castle ladder, at (%d,%d)", p.X, p.Y)
	}
	f.sim.Tick()
	if p.X != 95 || p.Y != 99 || !out.hasNote("You climb the ladder.") {
		t.Fatalf("expected dungeon arrival, at (%d,%d)", p.X, p.Y)
	}
	f.sim.Tick()
	if p.X != 95 || p.Y != 99 {
		t.Fatalf("arrival tile must not bounce the player back")
	}
	f.sim.HandleMove(p.ID, 95, 98)
	f.sim.HandleMove(p.ID, 95, 99)
	f.sim.Tick()
	if p.X != 91 || p.Y != 30 {
		t.Fatalf("stepping back onto the ladder should return to the castle, at (%d,%d)", p.X, p.Y)
	}
}

func TestLeaveReturnsRecordWithCredential(t *testing.T) {
	f := newFixture(t)
	rec := account.NewRecord("alice")
	rec.PasswordHash, rec.Salt = "hash", "salt"
	p, err := f.sim.Join(rec, "s1", &recorder{})
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	p.X, p.Y = 55, 56
	saved := f.sim.Leave(p.ID)
	if saved == nil || saved.PasswordHash != "hash" || saved.Salt != "salt" || saved.X != 55 || saved.Y != 56 {
		t.Fatalf("unexpected record %+v", saved)
	}
	if f.sim.PlayerCount() != 0 || f.sim.Leave(p.ID) != nil {
		t.Fatalf("player must be gone after leaving")
	}
}
