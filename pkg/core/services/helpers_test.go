package services

import (
	"context"
	"time"

	"github.com/jakechorley/spv-planning/internal/config"
	"github.com/jakechorley/spv-planning/pkg/db"
	"github.com/jakechorley/spv-planning/pkg/events"
)

// mockStore implements OptimizeStore and RunReader
type mockStore struct {
	firefighters []db.Firefighter
	availability []db.Availability
	runs         []db.Run
	assignments  map[string][]db.Assignment

	listFirefightersErr error
	listAvailabilityErr error
	insertRunErr        error
	getRunsErr          error
	getAssignmentsErr   error

	listCalls        int
	availabilityArgs []string
	insertedRun      *db.Run
	insertedRows     []db.Assignment
	getRunCalls      int
}

func (m *mockStore) ListFirefighters(ctx context.Context) ([]db.Firefighter, error) {
	m.listCalls++
	if m.listFirefightersErr != nil {
		return nil, m.listFirefightersErr
	}
	return m.firefighters, nil
}

func (m *mockStore) ListAvailability(ctx context.Context, start, end string) ([]db.Availability, error) {
	m.availabilityArgs = []string{start, end}
	if m.listAvailabilityErr != nil {
		return nil, m.listAvailabilityErr
	}
	return m.availability, nil
}

func (m *mockStore) InsertRun(ctx context.Context, run *db.Run, assignments []db.Assignment) error {
	if m.insertRunErr != nil {
		return m.insertRunErr
	}
	m.insertedRun = run
	m.insertedRows = assignments
	return nil
}

func (m *mockStore) GetRuns(ctx context.Context) ([]db.Run, error) {
	if m.getRunsErr != nil {
		return nil, m.getRunsErr
	}
	return m.runs, nil
}

func (m *mockStore) GetRun(ctx context.Context, id string) (*db.Run, error) {
	m.getRunCalls++
	for i := range m.runs {
		if m.runs[i].ID == id {
			return &m.runs[i], nil
		}
	}
	return nil, db.ErrNotFound
}

func (m *mockStore) GetAssignments(ctx context.Context, runID string) ([]db.Assignment, error) {
	if m.getAssignmentsErr != nil {
		return nil, m.getAssignmentsErr
	}
	return m.assignments[runID], nil
}

type recordedRun struct {
	mode      string
	shortages int
	coverage  float64
}

type recordedFailure struct {
	mode        string
	configError bool
}

type mockRecorder struct {
	runs     []recordedRun
	failures []recordedFailure
}

func (m *mockRecorder) RecordRun(mode string, elapsed time.Duration, shortages int, averageCoverage float64) {
	m.runs = append(m.runs, recordedRun{mode: mode, shortages: shortages, coverage: averageCoverage})
}

func (m *mockRecorder) RecordFailure(mode string, configError bool) {
	m.failures = append(m.failures, recordedFailure{mode: mode, configError: configError})
}

// mockCache implements PlanCache
type mockCache struct {
	plans  map[string][]byte
	latest []byte

	setErr error
	getErr error

	setCalls []string
}

func (m *mockCache) SetPlan(ctx context.Context, runID string, data []byte) error {
	m.setCalls = append(m.setCalls, runID)
	if m.setErr != nil {
		return m.setErr
	}
	if m.plans == nil {
		m.plans = make(map[string][]byte)
	}
	m.plans[runID] = data
	m.latest = data
	return nil
}

func (m *mockCache) GetPlan(ctx context.Context, runID string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.plans[runID], nil
}

func (m *mockCache) GetLatestPlan(ctx context.Context) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.latest, nil
}

// mockPublisher implements EventPublisher
type mockPublisher struct {
	events []events.PlanComputed
	err    error
}

func (m *mockPublisher) PublishPlanComputed(ctx context.Context, event events.PlanComputed) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

// simplifiedConfig staffs three firefighters on slot 1 and one on slot 2, with no other on-call needs
func simplifiedConfig() *config.Config {
	headcount := 3
	return &config.Config{
		Optimizer: config.OptimizerConfig{
			Mode:             "SIMPLIFIE",
			PrimaryHeadcount: &headcount,
			OnCallNeeds:      map[int]map[string]int{2: {"general": 1}},
		},
	}
}

// rosterStore returns a store with count firefighters available on slots 1 and 2 of 2025-03-01
func rosterStore(count int) *mockStore {
	names := []string{"Alice", "Bruno", "Chloe", "David", "Emma"}
	store := &mockStore{}
	for i := 0; i < count; i++ {
		id := int64(i + 1)
		store.firefighters = append(store.firefighters, db.Firefighter{
			ID: id, FirstName: names[i], LastName: "Martin", Grade: "SAP", EmploymentType: "volunteer", Active: true,
		})
		store.availability = append(store.availability,
			db.Availability{FirefighterID: id, Date: "2025-03-01", Slot: 1, Available: true},
			db.Availability{FirefighterID: id, Date: "2025-03-01", Slot: 2, Available: true},
		)
	}
	return store
}

func oneDay() OptimizeParams {
	return OptimizeParams{Start: "2025-03-01", End: "2025-03-01"}
}

func float64Ptr(f float64) *float64 {
	return &f
}

func intPtr(i int) *int {
	return &i
}
