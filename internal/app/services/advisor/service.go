// Package advisor manages user homes and evaluates relocation scenarios
// against metro price trends.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/alpex-ai/housing-intelligence/internal/app/domain/advisor"
	"github.com/alpex-ai/housing-intelligence/internal/app/domain/metro"
	"github.com/alpex-ai/housing-intelligence/internal/app/services/calc"
	"github.com/alpex-ai/housing-intelligence/internal/app/storage"
	"github.com/alpex-ai/housing-intelligence/pkg/logger"
)

var (
	// ErrHomeNotFound covers both missing homes and homes owned by another user.
	ErrHomeNotFound = errors.New("home not found or unauthorized")
	// ErrScenarioNotFound covers both missing and foreign scenarios.
	ErrScenarioNotFound = errors.New("scenario not found or unauthorized")
	// ErrInvalidScenarioType is returned for scenario types outside the known set.
	ErrInvalidScenarioType = errors.New("invalid scenario type")
)

const unknownRegion = "Unknown"

// Service implements the advisor use cases.
type Service struct {
	homes     storage.HomeStore
	scenarios storage.ScenarioStore
	metros    storage.MetroStore
	clock     clockwork.Clock
	log       *logger.Logger
}

// New constructs the advisor service.
func New(homes storage.HomeStore, scenarios storage.ScenarioStore, metros storage.MetroStore, clock clockwork.Clock, log *logger.Logger) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = logger.NewDefault("advisor")
	}
	return &Service{homes: homes, scenarios: scenarios, metros: metros, clock: clock, log: log}
}

// CreateHome stores a new home for h.UserID.
func (s *Service) CreateHome(ctx context.Context, h advisor.Home) (advisor.Home, error) {
	h.UserID = strings.TrimSpace(h.UserID)
	h.City = strings.TrimSpace(h.City)
	h.State = strings.TrimSpace(h.State)
	if h.UserID == "" {
		return advisor.Home{}, fmt.Errorf("user_id is required")
	}
	if h.City == "" || h.State == "" {
		return advisor.Home{}, fmt.Errorf("city and state are required")
	}
	if h.PurchasePrice < 0 || h.CurrentMortgageBalance < 0 {
		return advisor.Home{}, fmt.Errorf("prices must not be negative")
	}
	h.ID = ""
	return s.homes.CreateHome(ctx, h)
}

// GetHome returns a home owned by userID.
func (s *Service) GetHome(ctx context.Context, userID, homeID string) (advisor.Home, error) {
	home, err := s.homes.GetHome(ctx, homeID)
	if errors.Is(err, storage.ErrNotFound) {
		return advisor.Home{}, ErrHomeNotFound
	}
	if err != nil {
		return advisor.Home{}, err
	}
	if home.UserID != userID {
		return advisor.Home{}, ErrHomeNotFound
	}
	return home, nil
}

// ListHomes returns the homes of userID.
func (s *Service) ListHomes(ctx context.Context, userID string) ([]advisor.Home, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	return s.homes.ListHomes(ctx, userID)
}

// UpdateHome replaces the editable fields of a home owned by userID.
func (s *Service) UpdateHome(ctx context.Context, userID string, h advisor.Home) (advisor.Home, error) {
	if _, err := s.GetHome(ctx, userID, h.ID); err != nil {
		return advisor.Home{}, err
	}
	if strings.TrimSpace(h.City) == "" || strings.TrimSpace(h.State) == "" {
		return advisor.Home{}, fmt.Errorf("city and state are required")
	}
	h.UserID = userID
	return s.homes.UpdateHome(ctx, h)
}

// DeleteHome removes a home owned by userID.
func (s *Service) DeleteHome(ctx context.Context, userID, homeID string) error {
	if _, err := s.GetHome(ctx, userID, homeID); err != nil {
		return err
	}
	return s.homes.DeleteHome(ctx, homeID)
}

// AddAppraisal records a valuation for a home owned by userID. A zero date
// means today.
func (s *Service) AddAppraisal(ctx context.Context, userID string, a advisor.Appraisal) (advisor.Appraisal, error) {
	if a.AppraisedValue <= 0 {
		return advisor.Appraisal{}, fmt.Errorf("appraised_value must be positive")
	}
	if _, err := s.GetHome(ctx, userID, a.HomeID); err != nil {
		return advisor.Appraisal{}, err
	}
	if a.AppraisalDate.IsZero() {
		a.AppraisalDate = s.clock.Now().UTC()
	}
	return s.homes.CreateAppraisal(ctx, a)
}

// ListAppraisals returns a home's appraisals, newest first.
func (s *Service) ListAppraisals(ctx context.Context, userID, homeID string) ([]advisor.Appraisal, error) {
	if _, err := s.GetHome(ctx, userID, homeID); err != nil {
		return nil, err
	}
	return s.homes.ListAppraisals(ctx, homeID)
}

// MetroTrend summarises a metro's latest value against the values six and
// twelve months before it. It returns nil when the region has no data.
func (s *Service) MetroTrend(ctx context.Context, regionID int) (*metro.Trend, error) {
	latest, err := s.metros.LatestMetroValue(ctx, regionID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest metro value: %w", err)
	}

	lookBack := func(months int) (float64, error) {
		v, err := s.metros.MetroValueAtOrBefore(ctx, regionID, latest.Date.AddDate(0, -months, 0))
		if errors.Is(err, storage.ErrNotFound) {
			return 0, nil
		}
		if err != nil {
			return 0, fmt.Errorf("metro value %d months back: %w", months, err)
		}
		return v.HomeValue, nil
	}
	six, err := lookBack(6)
	if err != nil {
		return nil, err
	}
	twelve, err := lookBack(12)
	if err != nil {
		return nil, err
	}

	trend := calc.MetroTrendFrom(latest.HomeValue, six, twelve)
	trend.RegionID = regionID
	trend.RegionName = latest.RegionName
	if trend.RegionName == "" {
		trend.RegionName = unknownRegion
		if region, err := s.metros.GetMetroRegion(ctx, regionID); err == nil && region.RegionName != "" {
			trend.RegionName = region.RegionName
		}
	}
	return &trend, nil
}

// FindMetro returns the first metropolitan area whose name contains query.
func (s *Service) FindMetro(ctx context.Context, query string) (metro.Region, error) {
	return s.metros.FindMetroRegion(ctx, query, metro.RegionTypeMSA)
}

// ListMetros returns metropolitan areas ordered by size rank.
func (s *Service) ListMetros(ctx context.Context, limit int) ([]metro.Region, error) {
	return s.metros.ListMetroRegions(ctx, metro.RegionTypeMSA, limit)
}

// Analyze evaluates moving from a user's home to targetCity.
func (s *Service) Analyze(ctx context.Context, userID, homeID, targetCity string, scenarioType advisor.ScenarioType) (advisor.Analysis, error) {
	home, err := s.GetHome(ctx, userID, homeID)
	if err != nil {
		return advisor.Analysis{}, err
	}
	if !scenarioType.Valid() {
		return advisor.Analysis{}, fmt.Errorf("%w: %q", ErrInvalidScenarioType, scenarioType)
	}

	homeValue, err := s.homeValue(ctx, home)
	if err != nil {
		return advisor.Analysis{}, err
	}

	var current *metro.Trend
	if home.RegionID != nil {
		if current, err = s.MetroTrend(ctx, *home.RegionID); err != nil {
			return advisor.Analysis{}, err
		}
	}

	target, err := s.targetTrend(ctx, targetCity)
	if err != nil {
		return advisor.Analysis{}, err
	}

	analysis := calc.Recommend(calc.ScenarioInput{
		ScenarioType:    scenarioType,
		HomeValue:       homeValue,
		MortgageBalance: home.CurrentMortgageBalance,
		TargetCity:      targetCity,
		CurrentMetro:    current,
		TargetMetro:     target,
	})
	s.log.WithField("home_id", homeID).
		WithField("target_city", targetCity).
		WithField("recommendation", analysis.Recommendation).
		Debug("scenario analysed")
	return analysis, nil
}

// homeValue is the latest appraisal, else the purchase price, else zero.
func (s *Service) homeValue(ctx context.Context, home advisor.Home) (float64, error) {
	appraisals, err := s.homes.ListAppraisals(ctx, home.ID)
	if err != nil {
		return 0, fmt.Errorf("list appraisals: %w", err)
	}
	if len(appraisals) > 0 && appraisals[0].AppraisedValue > 0 {
		return appraisals[0].AppraisedValue, nil
	}
	return home.PurchasePrice, nil
}

func (s *Service) targetTrend(ctx context.Context, city string) (*metro.Trend, error) {
	if strings.TrimSpace(city) == "" {
		return nil, nil
	}
	region, err := s.FindMetro(ctx, city)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find target metro: %w", err)
	}
	trend, err := s.MetroTrend(ctx, region.RegionID)
	if err != nil || trend == nil {
		return trend, err
	}
	trend.RegionName = region.RegionName
	return trend, nil
}

// ScenarioRequest describes a scenario to analyse and save.
type ScenarioRequest struct {
	Name         string               `json:"name"`
	HomeID       string               `json:"homeId"`
	TargetCity   string               `json:"targetCity"`
	ScenarioType advisor.ScenarioType `json:"scenarioType"`
}

// CreateScenario analyses req and stores the result for userID.
func (s *Service) CreateScenario(ctx context.Context, userID string, req ScenarioRequest) (advisor.Scenario, error) {
	if strings.TrimSpace(req.TargetCity) == "" {
		return advisor.Scenario{}, fmt.Errorf("target_city is required")
	}
	analysis, err := s.Analyze(ctx, userID, req.HomeID, req.TargetCity, req.ScenarioType)
	if err != nil {
		return advisor.Scenario{}, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = fmt.Sprintf("Move to %s", req.TargetCity)
	}
	sc := advisor.Scenario{
		UserID:          userID,
		Name:            name,
		HomeID:          req.HomeID,
		TargetCity:      req.TargetCity,
		ScenarioType:    req.ScenarioType,
		AnalysisResults: &analysis,
	}
	if analysis.TargetMetro != nil {
		id := analysis.TargetMetro.RegionID
		sc.TargetRegionID = &id
	}
	return s.scenarios.CreateScenario(ctx, sc)
}

// GetScenario returns a scenario owned by userID.
func (s *Service) GetScenario(ctx context.Context, userID, id string) (advisor.Scenario, error) {
	sc, err := s.scenarios.GetScenario(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return advisor.Scenario{}, ErrScenarioNotFound
	}
	if err != nil {
		return advisor.Scenario{}, err
	}
	if sc.UserID != userID {
		return advisor.Scenario{}, ErrScenarioNotFound
	}
	return sc, nil
}

// ListScenarios returns userID's scenarios, newest first.
func (s *Service) ListScenarios(ctx context.Context, userID string) ([]advisor.Scenario, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	return s.scenarios.ListScenarios(ctx, userID)
}

// RefreshScenario re-runs a saved scenario's analysis against current data.
func (s *Service) RefreshScenario(ctx context.Context, userID, id string) (advisor.Scenario, error) {
	sc, err := s.GetScenario(ctx, userID, id)
	if err != nil {
		return advisor.Scenario{}, err
	}
	analysis, err := s.Analyze(ctx, userID, sc.HomeID, sc.TargetCity, sc.ScenarioType)
	if err != nil {
		return advisor.Scenario{}, err
	}
	sc.AnalysisResults = &analysis
	return s.scenarios.UpdateScenario(ctx, sc)
}

// DeleteScenario removes a scenario owned by userID.
func (s *Service) DeleteScenario(ctx context.Context, userID, id string) error {
	if _, err := s.GetScenario(ctx, userID, id); err != nil {
		return err
	}
	return s.scenarios.DeleteScenario(ctx, id)
}

