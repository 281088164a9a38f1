// Simulation ties the city and the population together and runs one tick at
// a time. A single mutex serializes every read and write; there is exactly
// one writer path (AdvanceTick, Restart, GoHome).
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/outbreak/internal/agents"
	"github.com/talgya/outbreak/internal/entropy"
	"github.com/talgya/outbreak/internal/params"
	"github.com/talgya/outbreak/internal/world"
)

// ErrUnknownPerson is returned for IDs not in the active population.
var ErrUnknownPerson = errors.New("engine: unknown person")

// maxEvents bounds the in-memory event log.
const maxEvents = 1000

// Event is a notable occurrence in the world.
type Event struct {
	Tick        uint64 `json:"tick"`
	Description string `json:"description"`
	Category    string `json:"category"` // "infection", "recovery", "dying", "death", "restart"
	PersonID    *int   `json:"person_id,omitempty"`
}

// SimStats tracks aggregate counts for the current run.
type SimStats struct {
	Population int `json:"population"` // People not yet removed
	Healthy    int `json:"healthy"`
	Sick       int `json:"sick"`
	Dying      int `json:"dying"`
	AtHome     int `json:"atHome"`
	Walking    int `json:"walking"`
	GoingHome  int `json:"goingHome"`

	// Cumulative since the last restart.
	Infections int `json:"infections"`
	Recoveries int `json:"recoveries"`
	Deaths     int `json:"deaths"`
}

// TickReport is handed to OnReport after every committed tick or restart.
type TickReport struct {
	RunID     uuid.UUID
	Tick      uint64
	Time      time.Time
	Stats     SimStats
	Events    []Event
	Restarted bool
}

// Simulation holds the complete world state.
type Simulation struct {
	mu sync.Mutex

	City       *world.City
	People     []*agents.Person
	RunID      uuid.UUID
	Tick       uint64    // Ticks executed in this run
	LastUpdate time.Time // Time of the last executed tick or restart
	Events     []Event   // Recent events, oldest first
	Stats      SimStats

	// OnReport, if set, receives every committed tick and restart in commit
	// order. It must not call back into the simulation. Set it before the
	// simulation is shared.
	OnReport func(TickReport)

	index map[agents.PersonID]*agents.Person

	seed            int64
	genCfg          world.GenConfig
	spawnCfg        agents.SpawnConfig
	rules           agents.Rules
	infectionProb   float64
	infectionRadius float64
	interval        time.Duration
	clock           Clock
	rng             entropy.Source
	spawner         *agents.Spawner

	// pubMu orders publication. It is only taken while holding mu and is
	// released after mu, so publish must never take mu.
	pubMu sync.Mutex

	subMu   sync.Mutex
	subs    map[int]chan Snapshot
	nextSub int
}

// Option customizes a Simulation at construction.
type Option func(*Simulation)

// WithSeed seeds the random sources. Zero picks a crypto seed.
func WithSeed(seed int64) Option {
	return func(s *Simulation) { s.seed = seed }
}

// WithRand replaces the random source for both spawning and ticking.
func WithRand(rng entropy.Source) Option {
	return func(s *Simulation) { s.rng = rng }
}

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(s *Simulation) { s.clock = c }
}

// WithGenConfig replaces the house layout.
func WithGenConfig(cfg world.GenConfig) Option {
	return func(s *Simulation) { s.genCfg = cfg }
}

// WithSpawnConfig replaces the population size and initial sick fraction.
func WithSpawnConfig(cfg agents.SpawnConfig) Option {
	return func(s *Simulation) { s.spawnCfg = cfg }
}

// WithRules replaces the per-person model constants.
func WithRules(r agents.Rules) Option {
	return func(s *Simulation) { s.rules = r }
}

// WithInfectionProbability replaces the per-tick transmission chance.
func WithInfectionProbability(p float64) Option {
	return func(s *Simulation) { s.infectionProb = p }
}

// NewSimulation builds the city and the initial population. A layout that
// cannot hold the population is a configuration error.
func NewSimulation(opts ...Option) (*Simulation, error) {
	s := &Simulation{
		genCfg:          world.DefaultGenConfig(),
		spawnCfg:        agents.DefaultSpawnConfig(),
		rules:           agents.DefaultRules(),
		infectionProb:   params.InfectionProbability,
		infectionRadius: params.MinDistanceToGetSick,
		interval:        params.TickInterval,
		clock:           SystemClock(),
		subs:            make(map[int]chan Snapshot),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.genCfg.Validate(); err != nil {
		return nil, err
	}
	capacity := s.genCfg.HouseAmount() * s.genCfg.MaxPeopleInHouse
	if s.spawnCfg.Count > capacity {
		return nil, fmt.Errorf("population %d exceeds house capacity %d: %w",
			s.spawnCfg.Count, capacity, world.ErrCityFull)
	}

	spawnRNG := s.rng
	if s.rng == nil {
		if s.seed == 0 {
			s.seed = entropy.CryptoSeed()
		}
		s.rng = entropy.New(s.seed)
		spawnRNG = entropy.Derive(s.seed, 300)
	}
	s.spawner = agents.NewSpawner(spawnRNG, s.spawnCfg)

	if _, err := s.resetLocked(); err != nil {
		return nil, err
	}
	return s, nil
}

// Seed returns the root seed, or zero when an explicit source was injected.
func (s *Simulation) Seed() int64 {
	return s.seed
}

// Snapshot returns the current state without advancing time.
func (s *Simulation) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// AdvanceTick executes one tick if at least the tick interval has passed
// since the last one; otherwise it only returns the current state. A failed
// tick leaves the world exactly as it was.
func (s *Simulation) AdvanceTick() (Snapshot, error) {
	s.mu.Lock()
	now := s.clock.Now()
	if now.Sub(s.LastUpdate) < s.interval {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, nil
	}

	report, err := s.stepLocked(now)
	snap := s.snapshotLocked()
	if err != nil {
		s.mu.Unlock()
		return snap, err
	}

	// Taking pubMu before releasing mu keeps reports in commit order.
	s.pubMu.Lock()
	s.mu.Unlock()
	defer s.pubMu.Unlock()
	s.publish(snap, report)
	return snap, nil
}

// Restart discards the city and population and builds fresh ones.
func (s *Simulation) Restart() (Snapshot, error) {
	s.mu.Lock()
	report, err := s.resetLocked()
	snap := s.snapshotLocked()
	if err != nil {
		s.mu.Unlock()
		return snap, err
	}

	s.pubMu.Lock()
	s.mu.Unlock()
	defer s.pubMu.Unlock()
	slog.Info("simulation restarted", "run", report.RunID, "people", report.Stats.Population)
	s.publish(snap, report)
	return snap, nil
}

// GoHome asks a walking person to head home. The first homeward step happens
// during the call, outside the tick gate. Returns whether the state changed;
// anyone not walking is left alone.
func (s *Simulation) GoHome(id agents.PersonID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.index[id]
	if !ok || p.Health == agents.Dead {
		return false, fmt.Errorf("%w: %d", ErrUnknownPerson, id)
	}
	changed := p.GoHome(s.City, s.rules)
	if changed {
		s.updateStats()
	}
	return changed, nil
}

// CurrentTick returns the most recently executed tick number.
func (s *Simulation) CurrentTick() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Tick
}

// LastUpdated returns the time of the last executed tick or restart.
func (s *Simulation) LastUpdated() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.LastUpdate
}

// RecentEvents returns up to limit of the newest events, oldest first.
func (s *Simulation) RecentEvents(limit int) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := 0
	if limit > 0 && len(s.Events) > limit {
		start = len(s.Events) - limit
	}
	out := make([]Event, len(s.Events)-start)
	copy(out, s.Events[start:])
	return out
}

// stepLocked runs the tick body on copies of every person and commits only
// if every step succeeded. Caller holds s.mu.
func (s *Simulation) stepLocked(now time.Time) (TickReport, error) {
	tick := s.Tick + 1

	next := make([]*agents.Person, 0, len(s.People))
	for _, p := range s.People {
		if p.Health == agents.Dead {
			continue
		}
		cp := *p
		next = append(next, &cp)
	}

	stats := s.Stats
	var events []Event
	for _, p := range next {
		change, err := p.Step(s.City, s.rng, s.rules)
		if err != nil {
			slog.Error("tick aborted", "tick", tick, "person", p.ID, "error", err)
			return TickReport{}, fmt.Errorf("tick %d: %w", tick, err)
		}
		switch change {
		case agents.ChangeRecovered:
			stats.Recoveries++
			events = append(events, personEvent(tick, p, "recovery", "has recovered"))
		case agents.ChangeDying:
			events = append(events, personEvent(tick, p, "dying", "is dying"))
		case agents.ChangeDied:
			stats.Deaths++
			events = append(events, personEvent(tick, p, "death", "has died"))
		}
	}

	for _, p := range s.spreadInfection(next) {
		stats.Infections++
		events = append(events, personEvent(tick, p, "infection", "caught the disease"))
	}

	s.People = next
	s.Tick = tick
	s.LastUpdate = now
	s.Stats = stats
	s.rebuildIndex()
	s.updateStats()
	s.appendEvents(events)

	return TickReport{
		RunID:  s.RunID,
		Tick:   tick,
		Time:   now,
		Stats:  s.Stats,
		Events: events,
	}, nil
}

// resetLocked builds a new run. Caller holds s.mu (or owns s exclusively).
func (s *Simulation) resetLocked() (TickReport, error) {
	city, err := world.Generate(s.genCfg)
	if err != nil {
		return TickReport{}, err
	}
	people, err := s.spawner.SpawnPopulation(city)
	if err != nil {
		return TickReport{}, fmt.Errorf("spawn population: %w", err)
	}

	s.City = city
	s.People = people
	s.RunID = uuid.New()
	s.Tick = 0
	s.LastUpdate = s.clock.Now()
	s.Stats = SimStats{}
	s.Events = nil
	s.rebuildIndex()
	s.updateStats()

	restart := Event{
		Tick:        0,
		Description: fmt.Sprintf("new run with %d people in %d houses", len(people), city.HouseAmount()),
		Category:    "restart",
	}
	s.appendEvents([]Event{restart})

	return TickReport{
		RunID:     s.RunID,
		Time:      s.LastUpdate,
		Stats:     s.Stats,
		Events:    []Event{restart},
		Restarted: true,
	}, nil
}

func (s *Simulation) rebuildIndex() {
	s.index = make(map[agents.PersonID]*agents.Person, len(s.People))
	for _, p := range s.People {
		s.index[p.ID] = p
	}
}

// updateStats recounts the per-state totals; cumulative counters are kept.
func (s *Simulation) updateStats() {
	st := s.Stats
	st.Population = len(s.People)
	st.Healthy, st.Sick, st.Dying = 0, 0, 0
	st.AtHome, st.Walking, st.GoingHome = 0, 0, 0

	for _, p := range s.People {
		switch p.Health {
		case agents.Healthy:
			st.Healthy++
		case agents.Sick:
			st.Sick++
		case agents.Dying:
			st.Dying++
		}
		switch p.State {
		case agents.AtHome:
			st.AtHome++
		case agents.Walking:
			st.Walking++
		case agents.GoingHome:
			st.GoingHome++
		}
	}
	s.Stats = st
}

func (s *Simulation) appendEvents(events []Event) {
	s.Events = append(s.Events, events...)
	// Trim old events to prevent unbounded growth.
	if len(s.Events) > maxEvents {
		s.Events = s.Events[len(s.Events)-maxEvents:]
	}
}

func personEvent(tick uint64, p *agents.Person, category, what string) Event {
	id := int(p.ID)
	return Event{
		Tick:        tick,
		Description: fmt.Sprintf("person %d %s", p.ID, what),
		Category:    category,
		PersonID:    &id,
	}
}
