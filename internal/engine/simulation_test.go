package engine

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"
	"time"

	"github.com/talgya/outbreak/internal/agents"
	"github.com/talgya/outbreak/internal/world"
)

func TestNewSimulationShape(t *testing.T) {
	s := newTestSim(t, newManualClock())
	snap := s.Snapshot()

	if snap.Tick != 0 {
		t.Fatalf("tick: got %d want 0", snap.Tick)
	}
	if len(snap.People) != 320 {
		t.Fatalf("people: got %d want 320", len(snap.People))
	}
	if len(snap.Map.Houses) != 50 {
		t.Fatalf("houses: got %d want 50", len(snap.Map.Houses))
	}
	if snap.Map.Width != 1000 || snap.Map.Height != 500 {
		t.Fatalf("map: got %dx%d want 1000x500", snap.Map.Width, snap.Map.Height)
	}

	residents := 0
	for _, h := range snap.Map.Houses {
		if h.ResidentCount > 10 {
			t.Fatalf("house %d over capacity: %d", h.ID, h.ResidentCount)
		}
		residents += h.ResidentCount
	}
	if residents != 320 {
		t.Fatalf("resident total: got %d want 320", residents)
	}

	if snap.Stats.Sick != 10 || snap.Stats.Healthy != 310 || snap.Stats.AtHome != 320 {
		t.Fatalf("stats: %+v", snap.Stats)
	}
	if snap.RunID == "" {
		t.Fatalf("missing run id")
	}
}

func TestNewSimulationRejectsOvercrowding(t *testing.T) {
	_, err := NewSimulation(
		WithSeed(1),
		WithGenConfig(world.SmallTestConfig()),
		WithSpawnConfig(agents.SpawnConfig{Count: 21}),
	)
	if !errors.Is(err, world.ErrCityFull) {
		t.Fatalf("expected ErrCityFull, got %v", err)
	}
}

func TestNewSimulationRejectsBadLayout(t *testing.T) {
	cfg := world.SmallTestConfig()
	cfg.HouseWidth = 500
	if _, err := NewSimulation(WithGenConfig(cfg)); !errors.Is(err, world.ErrBadLayout) {
		t.Fatalf("expected ErrBadLayout, got %v", err)
	}
}

func TestSameSeedSameWorld(t *testing.T) {
	a := newTestSim(t, newManualClock(), WithSeed(77))
	b := newTestSim(t, newManualClock(), WithSeed(77))

	sa, sb := a.Snapshot(), b.Snapshot()
	if !reflect.DeepEqual(sa.People, sb.People) {
		t.Fatalf("same seed produced different populations")
	}
}

func TestAdvanceTickIsGatedByInterval(t *testing.T) {
	clock := newManualClock()
	s := newTestSim(t, clock)
	initial := s.Snapshot()

	snap, err := s.AdvanceTick()
	if err != nil {
		t.Fatalf("AdvanceTick returned error: %v", err)
	}
	if !reflect.DeepEqual(snap, initial) {
		t.Fatalf("read at t=0 changed the world")
	}

	clock.Advance(999 * time.Millisecond)
	snap, err = s.AdvanceTick()
	if err != nil {
		t.Fatalf("AdvanceTick returned error: %v", err)
	}
	if !reflect.DeepEqual(snap, initial) {
		t.Fatalf("read inside the interval changed the world")
	}

	clock.Advance(time.Millisecond)
	first, err := s.AdvanceTick()
	if err != nil {
		t.Fatalf("AdvanceTick returned error: %v", err)
	}
	if first.Tick != 1 {
		t.Fatalf("tick: got %d want 1", first.Tick)
	}

	again, err := s.AdvanceTick()
	if err != nil {
		t.Fatalf("AdvanceTick returned error: %v", err)
	}
	if !reflect.DeepEqual(again, first) {
		t.Fatalf("second read in the same window differs from the first")
	}
	if !s.LastUpdated().Equal(clock.Now()) {
		t.Fatalf("last update: got %v want %v", s.LastUpdated(), clock.Now())
	}
}

func TestTenPeopleOneTick(t *testing.T) {
	clock := newManualClock()
	s := newTestSim(t, clock,
		WithGenConfig(world.SmallTestConfig()),
		WithSpawnConfig(agents.SpawnConfig{Count: 10, SickFraction: 0.1}),
	)

	before := make(map[agents.PersonID]world.Vec)
	for _, p := range s.Snapshot().People {
		before[p.ID] = p.Position
	}

	snap := tick(t, s, clock)
	if snap.Tick != 1 {
		t.Fatalf("tick: got %d want 1", snap.Tick)
	}
	if len(snap.People) != 10 {
		t.Fatalf("people: got %d want 10", len(snap.People))
	}
	for _, p := range snap.People {
		if d := world.Manhattan(before[p.ID], p.Position); d > 30 {
			t.Fatalf("person %d moved %d", p.ID, d)
		}
		if !s.City.InField(p.Position) {
			t.Fatalf("person %d at %v outside the field", p.ID, p.Position)
		}
	}
}

func TestInvariantsHoldOverManyTicks(t *testing.T) {
	clock := newManualClock()
	rules := agents.DefaultRules()
	rules.GoingWalkProbability = 0.2
	s := newTestSim(t, clock, WithSeed(99), WithRules(rules))

	prev := make(map[agents.PersonID]agents.Person)
	for _, p := range s.Snapshot().People {
		prev[p.ID] = p
	}

	deaths := 0
	for i := 1; i <= 150; i++ {
		if i%10 == 0 {
			for _, p := range s.Snapshot().People {
				if p.State == agents.Walking && p.Health != agents.Dead && p.ID%2 == 0 {
					if _, err := s.GoHome(p.ID); err != nil {
						t.Fatalf("GoHome(%d): %v", p.ID, err)
					}
				}
			}
			// GoHome steps outside the tick; measure the next tick from here.
			for _, p := range s.Snapshot().People {
				prev[p.ID] = p
			}
		}

		snap := tick(t, s, clock)
		if snap.Stats.Deaths < deaths {
			t.Fatalf("tick %d: deaths went down from %d to %d", i, deaths, snap.Stats.Deaths)
		}
		deaths = snap.Stats.Deaths

		for _, h := range snap.Map.Houses {
			if h.ResidentCount > s.City.MaxResidents {
				t.Fatalf("tick %d: house %d over capacity", i, h.ID)
			}
		}

		for _, p := range snap.People {
			old, ok := prev[p.ID]
			if !ok {
				t.Fatalf("tick %d: person %d appeared from nowhere", i, p.ID)
			}
			if old.Health == agents.Dead {
				t.Fatalf("tick %d: dead person %d still present", i, p.ID)
			}
			if d := world.Manhattan(old.Position, p.Position); d > 30 {
				t.Fatalf("tick %d: person %d moved %d", i, p.ID, d)
			}
			if !s.City.InField(p.Position) {
				t.Fatalf("tick %d: person %d at %v outside the field", i, p.ID, p.Position)
			}
			switch p.State {
			case agents.AtHome:
				if !s.City.InHouse(p.Position, p.HomeID) {
					t.Fatalf("tick %d: person %d at home but at %v", i, p.ID, p.Position)
				}
			case agents.Walking:
				if s.City.InOtherHouse(p.Position, p.HomeID) {
					t.Fatalf("tick %d: person %d walked into another house at %v", i, p.ID, p.Position)
				}
			}
		}

		prev = make(map[agents.PersonID]agents.Person, len(snap.People))
		for _, p := range snap.People {
			prev[p.ID] = p
		}
	}
}

func TestDeadAreReportedOnceThenRemoved(t *testing.T) {
	clock := newManualClock()
	rules := agents.DefaultRules()
	rules.ProbToDie = 1
	rules.StepsToDie = 1
	s := newTestSim(t, clock,
		WithGenConfig(world.SmallTestConfig()),
		WithSpawnConfig(agents.SpawnConfig{Count: 10, SickFraction: 1}),
		WithRules(rules),
	)

	snap := tick(t, s, clock)
	if snap.Stats.Dying != 10 {
		t.Fatalf("tick 1: dying %d want 10", snap.Stats.Dying)
	}

	snap = tick(t, s, clock)
	if len(snap.People) != 10 || snap.Stats.Deaths != 10 {
		t.Fatalf("tick 2: %d people, %d deaths", len(snap.People), snap.Stats.Deaths)
	}
	for _, p := range snap.People {
		if p.Health != agents.Dead {
			t.Fatalf("tick 2: person %d is %s", p.ID, p.Health)
		}
	}

	snap = tick(t, s, clock)
	if len(snap.People) != 0 || snap.Stats.Population != 0 {
		t.Fatalf("tick 3: %d people remain", len(snap.People))
	}
	if snap.Stats.Deaths != 10 {
		t.Fatalf("tick 3: deaths %d want 10", snap.Stats.Deaths)
	}

	if _, err := s.GoHome(0); !errors.Is(err, ErrUnknownPerson) {
		t.Fatalf("expected ErrUnknownPerson for a removed person, got %v", err)
	}
}

// Two walkers 5 apart take identical diagonal steps, so they stay within
// the infection radius after moving.
func infectionPair(t *testing.T, prob float64) (*Simulation, *manualClock) {
	t.Helper()
	clock := newManualClock()
	s := newTestSim(t, clock,
		WithGenConfig(world.SmallTestConfig()),
		WithSpawnConfig(agents.SpawnConfig{Count: 2}),
		WithInfectionProbability(prob),
	)
	placePeople(s,
		walker(0, agents.Sick, 80, 80),
		walker(1, agents.Healthy, 83, 84),
	)
	s.rng = &scriptedRand{
		ints:     []int{10, 3, 10, 3},
		floats:   []float64{0.5, 0.99},
		fallback: rand.New(rand.NewSource(1)),
	}
	return s, clock
}

func TestInfectionCertain(t *testing.T) {
	s, clock := infectionPair(t, 1)
	snap := tick(t, s, clock)

	if snap.People[1].Health != agents.Sick {
		t.Fatalf("healthy walker next to a sick walker stayed %s", snap.People[1].Health)
	}
	if d := world.Distance(snap.People[0].Position, snap.People[1].Position); d > 7 {
		t.Fatalf("walkers drifted apart: %f", d)
	}
	if snap.Stats.Infections != 1 {
		t.Fatalf("infections: got %d want 1", snap.Stats.Infections)
	}
	events := s.RecentEvents(1)
	if len(events) != 1 || events[0].Category != "infection" || *events[0].PersonID != 1 {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestInfectionImpossible(t *testing.T) {
	s, clock := infectionPair(t, 0)
	snap := tick(t, s, clock)

	if snap.People[1].Health != agents.Healthy {
		t.Fatalf("infection happened with zero probability")
	}
}

func TestNewlyInfectedDoNotSpreadInTheSameTick(t *testing.T) {
	clock := newManualClock()
	s := newTestSim(t, clock,
		WithGenConfig(world.SmallTestConfig()),
		WithSpawnConfig(agents.SpawnConfig{Count: 3}),
		WithInfectionProbability(1),
	)
	// A infects B (4 apart); C is 6 from B but 10 from A.
	placePeople(s,
		walker(0, agents.Sick, 70, 80),
		walker(1, agents.Healthy, 74, 80),
		walker(2, agents.Healthy, 80, 80),
	)
	s.rng = &scriptedRand{
		ints:     []int{10, 3, 10, 3, 10, 3},
		floats:   []float64{0.5, 0},
		fallback: rand.New(rand.NewSource(1)),
	}

	snap := tick(t, s, clock)
	if snap.People[1].Health != agents.Sick {
		t.Fatalf("B: got %s want Sick", snap.People[1].Health)
	}
	if snap.People[2].Health != agents.Healthy {
		t.Fatalf("C: got %s want Healthy", snap.People[2].Health)
	}
	if snap.Stats.Infections != 1 {
		t.Fatalf("infections: got %d want 1", snap.Stats.Infections)
	}
}

func TestFailedTickLeavesWorldUnchanged(t *testing.T) {
	clock := newManualClock()
	rules := agents.DefaultRules()
	rules.MaxPlacementAttempts = 0
	s := newTestSim(t, clock, WithRules(rules))
	before := s.Snapshot()

	clock.Advance(time.Second)
	snap, err := s.AdvanceTick()
	if !errors.Is(err, agents.ErrNoValidPosition) {
		t.Fatalf("expected ErrNoValidPosition, got %v", err)
	}
	if !reflect.DeepEqual(snap, before) {
		t.Fatalf("failed tick changed the world")
	}
	if s.CurrentTick() != 0 {
		t.Fatalf("tick advanced to %d", s.CurrentTick())
	}
}

func TestGoHome(t *testing.T) {
	clock := newManualClock()
	rules := agents.DefaultRules()
	rules.GoingWalkProbability = 0
	rules.ProbToDie = -1
	s := newTestSim(t, clock, WithRules(rules))

	if _, err := s.GoHome(9999); !errors.Is(err, ErrUnknownPerson) {
		t.Fatalf("expected ErrUnknownPerson, got %v", err)
	}

	changed, err := s.GoHome(0)
	if err != nil || changed {
		t.Fatalf("GoHome on a person at home: changed=%v err=%v", changed, err)
	}

	// Put person 0 out on the street, far from home.
	p0 := s.index[0]
	home := s.City.HomeCenter(p0.HomeID)
	start := world.Vec{X: home.X + 60, Y: home.Y + 70}
	p0.State = agents.Walking
	p0.Position = start

	changed, err = s.GoHome(0)
	if err != nil || !changed {
		t.Fatalf("GoHome on a walker: changed=%v err=%v", changed, err)
	}
	snap := s.Snapshot()
	p := snap.People[0]
	if p.State != agents.GoingHome {
		t.Fatalf("state: got %s want GoingHome", p.State)
	}
	if got := world.Manhattan(start, p.Position); got != 30 {
		t.Fatalf("first homeward step moved %d, want 30", got)
	}
	if world.Manhattan(p.Position, home) != world.Manhattan(start, home)-30 {
		t.Fatalf("step from %v to %v did not head for %v", start, p.Position, home)
	}
	if snap.Tick != 0 || snap.Stats.GoingHome != 1 {
		t.Fatalf("GoHome ran a tick or left stale stats: tick %d, %+v", snap.Tick, snap.Stats)
	}

	// 130 away: one step in GoHome, then three ticks of 30 and a snap.
	for i := 0; i < 4 && p.State == agents.GoingHome; i++ {
		p = tick(t, s, clock).People[0]
	}
	if p.State != agents.AtHome || p.Position != home {
		t.Fatalf("expected arrival at %v, got %s at %v", home, p.State, p.Position)
	}
}

func TestRestartBuildsFreshRun(t *testing.T) {
	clock := newManualClock()
	s := newTestSim(t, clock)
	oldRun := s.Snapshot().RunID
	for i := 0; i < 3; i++ {
		tick(t, s, clock)
	}

	clock.Advance(200 * time.Millisecond)
	snap, err := s.Restart()
	if err != nil {
		t.Fatalf("Restart returned error: %v", err)
	}
	if snap.Tick != 0 || len(snap.People) != 320 || len(snap.Map.Houses) != 50 {
		t.Fatalf("restart shape: tick %d, %d people, %d houses", snap.Tick, len(snap.People), len(snap.Map.Houses))
	}
	if snap.RunID == oldRun {
		t.Fatalf("restart kept run id %s", oldRun)
	}
	for _, p := range snap.People {
		if p.State != agents.AtHome || (p.Health != agents.Healthy && p.Health != agents.Sick) {
			t.Fatalf("person %d restarted as %s/%s", p.ID, p.Health, p.State)
		}
	}
	if snap.Stats.Deaths != 0 || snap.Stats.Infections != 0 {
		t.Fatalf("cumulative stats not reset: %+v", snap.Stats)
	}
	if !s.LastUpdated().Equal(clock.Now()) {
		t.Fatalf("restart did not reset the tick gate")
	}

	events := s.RecentEvents(0)
	if len(events) != 1 || events[0].Category != "restart" {
		t.Fatalf("events after restart: %+v", events)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	s := newTestSim(t, newManualClock())
	snap := s.Snapshot()
	snap.People[0].Position = world.Vec{X: -100, Y: -100}
	snap.Map.Houses[0].ResidentCount = 99

	fresh := s.Snapshot()
	if fresh.People[0].Position == snap.People[0].Position {
		t.Fatalf("snapshot shares person storage with the simulation")
	}
	if fresh.Map.Houses[0].ResidentCount == 99 {
		t.Fatalf("snapshot shares house storage with the simulation")
	}
}

func TestOnReport(t *testing.T) {
	clock := newManualClock()
	s := newTestSim(t, clock)

	var reports []TickReport
	s.OnReport = func(r TickReport) { reports = append(reports, r) }

	tick(t, s, clock)
	if _, err := s.Restart(); err != nil {
		t.Fatalf("Restart returned error: %v", err)
	}

	if len(reports) != 2 {
		t.Fatalf("reports: got %d want 2", len(reports))
	}
	if reports[0].Tick != 1 || reports[0].Restarted {
		t.Fatalf("tick report: %+v", reports[0])
	}
	if !reports[1].Restarted || reports[1].RunID == reports[0].RunID {
		t.Fatalf("restart report: %+v", reports[1])
	}
}
