package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pollsight/datahub/internal/config"
	"pollsight/datahub/internal/model"
	"pollsight/datahub/pkg/asyncop"
)

type fakeConstituencyRepo struct {
	stored []model.Constituency
}

func (r *fakeConstituencyRepo) ReplaceAll(_ context.Context, cs []model.Constituency) error {
	r.stored = cs
	return nil
}

func (r *fakeConstituencyRepo) List(context.Context, string) ([]model.Constituency, error) {
	return r.stored, nil
}

func (r *fakeConstituencyRepo) GetByCode(context.Context, string) (*model.Constituency, error) {
	panic("not used")
}

type fakeResultRepo struct {
	stored []model.Result
}

func (r *fakeResultRepo) UpsertBatch(_ context.Context, rs []model.Result) error {
	r.stored = rs
	return nil
}

func (r *fakeResultRepo) ListByConstituency(context.Context, string, int) ([]model.Result, error) {
	panic("not used")
}

func (r *fakeResultRepo) Years(context.Context) ([]int, error) { panic("not used") }

type fakeContactRepo struct {
	stored []model.Contact
}

func (r *fakeContactRepo) ReplaceAll(_ context.Context, cs []model.Contact) error {
	r.stored = cs
	return nil
}

func (r *fakeContactRepo) Search(context.Context, string, string) ([]model.Contact, error) {
	panic("not used")
}

func writeDataset(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newTestDatasetService(t *testing.T, sources map[string]config.DatasetSource) (DatasetService, *fakeConstituencyRepo, *fakeResultRepo, *fakeContactRepo, *asyncop.Manager) {
	t.Helper()
	constituencies := &fakeConstituencyRepo{}
	results := &fakeResultRepo{}
	contacts := &fakeContactRepo{}
	manager := asyncop.New()
	svc := NewDatasetService(
		config.DatasetsConfig{Sources: sources},
		manager, constituencies, results, contacts,
		zap.NewNop(),
	)
	return svc, constituencies, results, contacts, manager
}

func TestParseConstituencies(t *testing.T) {
	csv := `code,name,region,registered_voters,latitude,longitude
N-01,Northfield,North,52000,54.97,-1.61
S-02,Southmoor,South,48000,50.82,-0.14
`
	constituencies, err := parseConstituencies(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, constituencies, 2)
	assert.Equal(t, "N-01", constituencies[0].Code)
	assert.Equal(t, 52000, constituencies[0].RegisteredVoters)
	assert.InDelta(t, 54.97, constituencies[0].Latitude, 0.001)
}

func TestParseConstituenciesRejectsBadHeader(t *testing.T) {
	csv := "code,name,area,registered_voters,latitude,longitude\n"
	_, err := parseConstituencies(strings.NewReader(csv))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "header mismatch")
}

func TestParseConstituenciesRejectsBadNumber(t *testing.T) {
	csv := `code,name,region,registered_voters,latitude,longitude
N-01,Northfield,North,lots,54.97,-1.61
`
	_, err := parseConstituencies(strings.NewReader(csv))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")
}

func TestParseResultsDerivesVoteShare(t *testing.T) {
	csv := `constituency_code,year,party,candidate,votes
N-01,2024,Alpha,Alice,6000
N-01,2024,Beta,Bob,4000
N-01,2020,Alpha,Alice,5000
`
	results, err := parseResults(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, results, 3)

	// Shares are per (constituency, year): 6000/10000 and 4000/10000 for 2024,
	// 5000/5000 for 2020.
	assert.InDelta(t, 60.0, results[0].VoteShare, 0.001)
	assert.InDelta(t, 40.0, results[1].VoteShare, 0.001)
	assert.InDelta(t, 100.0, results[2].VoteShare, 0.001)
}

func TestParseResultsRejectsNegativeVotes(t *testing.T) {
	csv := `constituency_code,year,party,candidate,votes
N-01,2024,Alpha,Alice,-5
`
	_, err := parseResults(strings.NewReader(csv))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "negative")
}

func TestParseContacts(t *testing.T) {
	csv := `constituency_code,office,name,phone,email
N-01,Returning Officer,Carol,555-0100,carol@example.org
`
	contacts, err := parseContacts(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "Returning Officer", contacts[0].Office)
}

func TestRefreshLoadsDataset(t *testing.T) {
	path := writeDataset(t, "constituencies.csv", `code,name,region,registered_voters,latitude,longitude
N-01,Northfield,North,52000,54.97,-1.61
`)
	svc, constituencies, _, _, manager := newTestDatasetService(t, map[string]config.DatasetSource{
		DatasetConstituencies: {Path: path},
	})

	summary, err := svc.Refresh(context.Background(), DatasetConstituencies)
	require.NoError(t, err)
	assert.Equal(t, DatasetConstituencies, summary.Dataset)
	assert.Equal(t, 1, summary.Rows)
	require.Len(t, constituencies.stored, 1)

	state := manager.GetState(OperationID(DatasetConstituencies))
	assert.False(t, state.IsLoading)
	assert.Empty(t, state.Error)
}

func TestRefreshUnknownDataset(t *testing.T) {
	svc, _, _, _, _ := newTestDatasetService(t, map[string]config.DatasetSource{})

	_, err := svc.Refresh(context.Background(), "turnout")
	assert.ErrorIs(t, err, ErrUnknownDataset)

	_, err = svc.Status("turnout")
	assert.ErrorIs(t, err, ErrUnknownDataset)

	assert.ErrorIs(t, svc.CancelRefresh("turnout"), ErrUnknownDataset)
}

func TestRefreshMissingFileReportsError(t *testing.T) {
	svc, _, _, _, manager := newTestDatasetService(t, map[string]config.DatasetSource{
		DatasetContacts: {Path: "/nonexistent/contacts.csv", MaxRetries: 1},
	})

	_, err := svc.Refresh(context.Background(), DatasetContacts)
	require.Error(t, err)

	state := manager.GetState(OperationID(DatasetContacts))
	assert.Contains(t, state.Error, "contacts.csv")
}

func TestRetryRefreshAfterFixingSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "contacts.csv")
	svc, _, _, contacts, manager := newTestDatasetService(t, map[string]config.DatasetSource{
		DatasetContacts: {Path: path, MaxRetries: 1, RetryDelayBase: 10 * time.Millisecond},
	})

	_, err := svc.Refresh(context.Background(), DatasetContacts)
	require.Error(t, err)

	// Source appears; a manual retry resets the failure bookkeeping and loads it.
	require.NoError(t, os.WriteFile(path, []byte(`constituency_code,office,name,phone,email
N-01,Returning Officer,Carol,555-0100,carol@example.org
`), 0o600))

	summary, err := svc.RetryRefresh(context.Background(), DatasetContacts)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Rows)
	require.Len(t, contacts.stored, 1)

	state := manager.GetState(OperationID(DatasetContacts))
	assert.Zero(t, state.RetryCount)
	assert.Empty(t, state.Error)
}

func TestDatasetsSorted(t *testing.T) {
	svc, _, _, _, _ := newTestDatasetService(t, map[string]config.DatasetSource{
		DatasetResults:        {Path: "r.csv"},
		DatasetConstituencies: {Path: "c.csv"},
		DatasetContacts:       {Path: "k.csv"},
	})

	assert.Equal(t, []string{DatasetConstituencies, DatasetContacts, DatasetResults}, svc.Datasets())
}
