package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"pollsight/datahub/internal/config"
	"pollsight/datahub/internal/model"
	"pollsight/datahub/internal/repository"
	"pollsight/datahub/pkg/asyncop"
)

// Dataset names, as configured under datasets.sources.
const (
	DatasetConstituencies = "constituencies"
	DatasetResults        = "results"
	DatasetContacts       = "contacts"
)

// OperationID returns the asyncop id under which a dataset load is tracked.
func OperationID(dataset string) string { return "load-" + dataset }

// RefreshSummary reports what one dataset load ingested.
type RefreshSummary struct {
	Dataset string `json:"dataset"`
	Rows    int    `json:"rows"`
}

// DatasetService loads the dashboard's CSV datasets into postgres. Every load
// runs through the asyncop manager, so failures are retried with backoff and
// the UI can subscribe to per-dataset loading state.
type DatasetService interface {
	Refresh(ctx context.Context, dataset string) (*RefreshSummary, error)
	// RetryRefresh bypasses the exhausted-retries state after repeated failures.
	RetryRefresh(ctx context.Context, dataset string) (*RefreshSummary, error)
	CancelRefresh(dataset string) error
	Status(dataset string) (asyncop.LoadingState, error)
	Datasets() []string
	// Run refreshes every dataset on its configured interval until ctx ends.
	Run(ctx context.Context)
}

type datasetService struct {
	cfg              config.DatasetsConfig
	manager          *asyncop.Manager
	constituencyRepo repository.ConstituencyRepository
	resultRepo       repository.ResultRepository
	contactRepo      repository.ContactRepository
	logger           *zap.Logger
}

func NewDatasetService(
	cfg config.DatasetsConfig,
	manager *asyncop.Manager,
	constituencyRepo repository.ConstituencyRepository,
	resultRepo repository.ResultRepository,
	contactRepo repository.ContactRepository,
	logger *zap.Logger,
) DatasetService {
	return &datasetService{
		cfg:              cfg,
		manager:          manager,
		constituencyRepo: constituencyRepo,
		resultRepo:       resultRepo,
		contactRepo:      contactRepo,
		logger:           logger,
	}
}

func (s *datasetService) Refresh(ctx context.Context, dataset string) (*RefreshSummary, error) {
	src, ok := s.cfg.Sources[dataset]
	if !ok {
		return nil, ErrUnknownDataset
	}
	return asyncop.Execute(ctx, s.manager, OperationID(dataset), s.loadFunc(dataset, src), s.options(src)...)
}

func (s *datasetService) RetryRefresh(ctx context.Context, dataset string) (*RefreshSummary, error) {
	src, ok := s.cfg.Sources[dataset]
	if !ok {
		return nil, ErrUnknownDataset
	}
	return asyncop.Retry(ctx, s.manager, OperationID(dataset), s.loadFunc(dataset, src), s.options(src)...)
}

func (s *datasetService) CancelRefresh(dataset string) error {
	if _, ok := s.cfg.Sources[dataset]; !ok {
		return ErrUnknownDataset
	}
	s.manager.Cancel(OperationID(dataset))
	return nil
}

func (s *datasetService) Status(dataset string) (asyncop.LoadingState, error) {
	if _, ok := s.cfg.Sources[dataset]; !ok {
		return asyncop.LoadingState{}, ErrUnknownDataset
	}
	return s.manager.GetState(OperationID(dataset)), nil
}

func (s *datasetService) Datasets() []string {
	names := make([]string, 0, len(s.cfg.Sources))
	for name := range s.cfg.Sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *datasetService) Run(ctx context.Context) {
	if s.cfg.RefreshOnStart {
		for _, name := range s.Datasets() {
			if _, err := s.Refresh(ctx, name); err != nil {
				s.logger.Warn("initial dataset refresh failed",
					zap.String("dataset", name), zap.Error(err))
			}
		}
	}

	for name, src := range s.cfg.Sources {
		if src.RefreshInterval <= 0 {
			continue
		}
		go s.refreshLoop(ctx, name, src.RefreshInterval)
	}
	<-ctx.Done()
}

func (s *datasetService) refreshLoop(ctx context.Context, dataset string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Refresh(ctx, dataset); err != nil {
				s.logger.Warn("scheduled dataset refresh failed",
					zap.String("dataset", dataset), zap.Error(err))
			} else {
				s.logger.Info("dataset refreshed", zap.String("dataset", dataset))
			}
		}
	}
}

// options maps dataset config onto per-call asyncop options. Zero values mean
// "use the library default".
func (s *datasetService) options(src config.DatasetSource) []asyncop.Option {
	var opts []asyncop.Option
	if src.MaxRetries > 0 {
		opts = append(opts, asyncop.WithMaxRetries(src.MaxRetries))
	}
	if src.RetryDelayBase > 0 {
		opts = append(opts, asyncop.WithRetryDelayBase(src.RetryDelayBase))
	}
	if src.Timeout > 0 {
		opts = append(opts, asyncop.WithTimeout(src.Timeout))
	}
	return opts
}

func (s *datasetService) loadFunc(dataset string, src config.DatasetSource) func(ctx context.Context) (*RefreshSummary, error) {
	return func(ctx context.Context) (*RefreshSummary, error) {
		f, err := os.Open(src.Path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", src.Path, err)
		}
		defer f.Close()

		rows, err := s.ingest(ctx, dataset, f)
		if err != nil {
			return nil, err
		}
		return &RefreshSummary{Dataset: dataset, Rows: rows}, nil
	}
}

func (s *datasetService) ingest(ctx context.Context, dataset string, r io.Reader) (int, error) {
	switch dataset {
	case DatasetConstituencies:
		constituencies, err := parseConstituencies(r)
		if err != nil {
			return 0, err
		}
		return len(constituencies), s.constituencyRepo.ReplaceAll(ctx, constituencies)
	case DatasetResults:
		results, err := parseResults(r)
		if err != nil {
			return 0, err
		}
		return len(results), s.resultRepo.UpsertBatch(ctx, results)
	case DatasetContacts:
		contacts, err := parseContacts(r)
		if err != nil {
			return 0, err
		}
		return len(contacts), s.contactRepo.ReplaceAll(ctx, contacts)
	default:
		return 0, ErrUnknownDataset
	}
}

func parseConstituencies(r io.Reader) ([]model.Constituency, error) {
	records, err := readCSV(r, []string{"code", "name", "region", "registered_voters", "latitude", "longitude"})
	if err != nil {
		return nil, err
	}

	constituencies := make([]model.Constituency, 0, len(records))
	for i, rec := range records {
		voters, err := strconv.Atoi(rec[3])
		if err != nil {
			return nil, fmt.Errorf("row %d: registered_voters: %w", i+2, err)
		}
		lat, err := strconv.ParseFloat(rec[4], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: latitude: %w", i+2, err)
		}
		lon, err := strconv.ParseFloat(rec[5], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: longitude: %w", i+2, err)
		}
		constituencies = append(constituencies, model.Constituency{
			Code:             rec[0],
			Name:             rec[1],
			Region:           rec[2],
			RegisteredVoters: voters,
			Latitude:         lat,
			Longitude:        lon,
		})
	}
	return constituencies, nil
}

// parseResults reads raw vote counts and derives each party's vote share as a
// percentage of its (constituency, year) total.
func parseResults(r io.Reader) ([]model.Result, error) {
	records, err := readCSV(r, []string{"constituency_code", "year", "party", "candidate", "votes"})
	if err != nil {
		return nil, err
	}

	results := make([]model.Result, 0, len(records))
	totals := make(map[string]int)
	for i, rec := range records {
		year, err := strconv.Atoi(rec[1])
		if err != nil {
			return nil, fmt.Errorf("row %d: year: %w", i+2, err)
		}
		votes, err := strconv.Atoi(rec[4])
		if err != nil {
			return nil, fmt.Errorf("row %d: votes: %w", i+2, err)
		}
		if votes < 0 {
			return nil, fmt.Errorf("row %d: votes must not be negative", i+2)
		}
		results = append(results, model.Result{
			ConstituencyCode: rec[0],
			Year:             year,
			Party:            rec[2],
			Candidate:        rec[3],
			Votes:            votes,
		})
		totals[rec[0]+"/"+rec[1]] += votes
	}

	for i := range results {
		total := totals[results[i].ConstituencyCode+"/"+strconv.Itoa(results[i].Year)]
		if total > 0 {
			results[i].VoteShare = float64(results[i].Votes) / float64(total) * 100
		}
	}
	return results, nil
}

func parseContacts(r io.Reader) ([]model.Contact, error) {
	records, err := readCSV(r, []string{"constituency_code", "office", "name", "phone", "email"})
	if err != nil {
		return nil, err
	}

	contacts := make([]model.Contact, 0, len(records))
	for _, rec := range records {
		contacts = append(contacts, model.Contact{
			ConstituencyCode: rec[0],
			Office:           rec[1],
			Name:             rec[2],
			Phone:            rec[3],
			Email:            rec[4],
		})
	}
	return contacts, nil
}

// readCSV validates the header row and returns the remaining records.
func readCSV(r io.Reader, header []string) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(header)
	reader.TrimLeadingSpace = true

	first, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i, col := range header {
		if first[i] != col {
			return nil, fmt.Errorf("csv header mismatch: expected %q at column %d, got %q", col, i+1, first[i])
		}
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv records: %w", err)
	}
	return records, nil
}
