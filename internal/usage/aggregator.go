package usage

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/j-veylop/panoptic/internal/logger"
	"github.com/j-veylop/panoptic/internal/models"
)

// ErrUnknownProvider is returned when an aggregation is requested for a
// tag no registered client serves.
var ErrUnknownProvider = errors.New("unknown provider")

// Engine aggregates usage and cost across providers and credentials.
// Aggregation is additive: when two resolved credentials see the same
// organization the numbers are counted once per credential, never
// deduplicated, because the engine has no identity signal to dedupe on.
type Engine struct {
	store   SecretStore
	audit   AuditSink
	clients map[string]ProviderClient
	now     func() time.Time
}

// NewEngine creates an engine over the given provider clients.
func NewEngine(store SecretStore, audit AuditSink, clients ...ProviderClient) *Engine {
	byTag := make(map[string]ProviderClient, len(clients))
	for _, c := range clients {
		byTag[c.Tag()] = c
	}
	return &Engine{
		store:   store,
		audit:   audit,
		clients: byTag,
		now:     time.Now,
	}
}

// Providers returns the tags of the registered provider clients, sorted.
func (e *Engine) Providers() []string {
	tags := lo.Keys(e.clients)
	sort.Strings(tags)
	return tags
}

// credentialResult carries one credential's fetch output back across the
// fan-out join.
type credentialResult struct {
	usage    map[string]models.TokenCounts
	costs    map[string]float64
	projects []models.ProjectUsage
}

// AggregateProvider builds the usage summary for a single provider over
// the given range. Credentials are fetched concurrently; a credential
// whose fetches fail is logged and skipped so one bad key never hides the
// others. Zero resolved credentials produce an empty summary, not an
// error.
func (e *Engine) AggregateProvider(ctx context.Context, tag string, r Range) (*models.ProviderUsageSummary, error) {
	client, ok := e.clients[tag]
	if !ok {
		return nil, ErrUnknownProvider
	}

	creds, err := ResolveCredentials(e.store, client)
	if err != nil {
		return nil, err
	}

	results := make([]*credentialResult, len(creds))
	var wg sync.WaitGroup
	for i, cred := range creds {
		wg.Add(1)
		go func(i int, cred models.Credential) {
			defer wg.Done()
			res, err := e.fetchCredential(ctx, client, cred, r)
			if err != nil {
				logger.Warn("credential fetch failed",
					"provider", tag, "credential", cred.Name, "error", err)
				if e.audit != nil {
					e.audit.Record("usage.fetch_failed", "credential", cred.Name,
						map[string]string{"provider": tag, "error": err.Error()})
				}
				return
			}
			results[i] = res
		}(i, cred)
	}
	wg.Wait()

	usage := make(map[string]models.TokenCounts)
	costs := make(map[string]float64)
	var projects []models.ProjectUsage
	for _, res := range results {
		if res == nil {
			continue
		}
		mergeUsage(usage, res.usage)
		mergeCosts(costs, res.costs)
		projects = append(projects, res.projects...)
	}

	summary := e.buildSummary(tag, usage, costs, projects)
	return summary, nil
}

// fetchCredential runs the unfiltered usage and cost fetches that feed the
// provider-level series, lists the credential's units, and runs per-unit
// filtered fetches for cost attribution. When the provider reports no
// units, the credential itself becomes the attribution line.
func (e *Engine) fetchCredential(ctx context.Context, client ProviderClient, cred models.Credential, r Range) (*credentialResult, error) {
	usage, err := client.FetchDailyUsage(ctx, cred, r, nil)
	if err != nil {
		return nil, err
	}
	costs, err := client.FetchDailyCost(ctx, cred, r, nil)
	if err != nil {
		return nil, err
	}

	res := &credentialResult{usage: usage, costs: costs}

	units, err := client.ListUnits(ctx, cred)
	if err != nil {
		logger.Debug("unit listing failed, attributing to credential",
			"provider", client.Tag(), "credential", cred.Name, "error", err)
		units = nil
	}

	if len(units) == 0 {
		if len(usage) > 0 || len(costs) > 0 {
			res.projects = append(res.projects, e.buildProject(
				models.UnitRef{ID: cred.Name, Name: cred.Name}, client.Tag(), cred.Name, usage, costs))
		}
		return res, nil
	}

	for _, unit := range units {
		unitUsage, err := client.FetchDailyUsage(ctx, cred, r, []string{unit.ID})
		if err != nil {
			logger.Debug("unit usage fetch failed",
				"provider", client.Tag(), "unit", unit.ID, "error", err)
			continue
		}
		unitCosts, err := client.FetchDailyCost(ctx, cred, r, []string{unit.ID})
		if err != nil {
			logger.Debug("unit cost fetch failed",
				"provider", client.Tag(), "unit", unit.ID, "error", err)
			continue
		}
		if len(unitUsage) == 0 && len(unitCosts) == 0 {
			continue
		}
		res.projects = append(res.projects, e.buildProject(unit, client.Tag(), cred.Name, unitUsage, unitCosts))
	}
	return res, nil
}

func (e *Engine) buildProject(unit models.UnitRef, provider, credName string, usage map[string]models.TokenCounts, costs map[string]float64) models.ProjectUsage {
	daily := buildDaily(usage, costs)
	today, week, month := costWindows(costs, e.now())

	p := models.ProjectUsage{
		Unit:           unit,
		Provider:       provider,
		CredentialName: credName,
		CostToday:      today,
		CostLast7Days:  week,
		CostLast30Days: month,
		Daily:          daily,
	}
	for _, d := range daily {
		p.InputTokens += d.InputTokens
		p.OutputTokens += d.OutputTokens
		p.TotalTokens += d.TotalTokens
		p.Requests += d.Requests
		p.CostUSD += d.CostUSD
	}
	return p
}

func (e *Engine) buildSummary(tag string, usage map[string]models.TokenCounts, costs map[string]float64, projects []models.ProjectUsage) *models.ProviderUsageSummary {
	daily := buildDaily(usage, costs)
	today, week, month := costWindows(costs, e.now())

	sort.SliceStable(projects, func(i, j int) bool {
		return projects[i].CostUSD > projects[j].CostUSD
	})

	summary := &models.ProviderUsageSummary{
		Provider:       tag,
		CostToday:      today,
		CostLast7Days:  week,
		CostLast30Days: month,
		Projects:       projects,
	}
	if len(daily) > 0 {
		latest := daily[0]
		summary.Today = &latest
	}
	summary.Last7Days = daily[:min(7, len(daily))]
	summary.Last30Days = daily[:min(30, len(daily))]
	return summary
}

// AggregateAll aggregates every registered provider concurrently and
// merges the results. Provider failures degrade to an absent entry in the
// combined summary rather than failing the run.
func (e *Engine) AggregateAll(ctx context.Context) *models.CombinedUsageSummary {
	tags := e.Providers()
	summaries := make([]*models.ProviderUsageSummary, len(tags))
	r := DefaultRange(e.now())

	var wg sync.WaitGroup
	for i, tag := range tags {
		wg.Add(1)
		go func(i int, tag string) {
			defer wg.Done()
			summary, err := e.AggregateProvider(ctx, tag, r)
			if err != nil {
				logger.Error("provider aggregation failed", "provider", tag, "error", err)
				return
			}
			summaries[i] = summary
		}(i, tag)
	}
	wg.Wait()

	byTag := make(map[string]*models.ProviderUsageSummary)
	for _, s := range summaries {
		if s != nil {
			byTag[s.Provider] = s
		}
	}
	return MergeProviders(byTag)
}

// MergeProviders combines per-provider summaries into a cross-provider
// view. It is a pure function of its input: daily entries for the same
// date are summed across providers and the combined series rebuilt, so
// merge order never matters.
func MergeProviders(providers map[string]*models.ProviderUsageSummary) *models.CombinedUsageSummary {
	combined := &models.CombinedUsageSummary{
		Providers: providers,
	}

	tags := lo.Keys(providers)
	sort.Strings(tags)

	byDate := make(map[string]models.DailyUsage)
	for _, tag := range tags {
		summary := providers[tag]
		if summary == nil {
			continue
		}
		combined.CostToday += summary.CostToday
		combined.CostLast7Days += summary.CostLast7Days
		combined.CostLast30Days += summary.CostLast30Days
		combined.Projects = append(combined.Projects, summary.Projects...)
		for _, d := range summary.Last30Days {
			merged := byDate[d.Date]
			merged.Date = d.Date
			merged.InputTokens += d.InputTokens
			merged.OutputTokens += d.OutputTokens
			merged.TotalTokens += d.TotalTokens
			merged.Requests += d.Requests
			merged.CostUSD += d.CostUSD
			byDate[d.Date] = merged
		}
	}

	dates := lo.Keys(byDate)
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	daily := make([]models.DailyUsage, 0, len(dates))
	for _, date := range dates {
		daily = append(daily, byDate[date])
	}

	if len(daily) > 0 {
		latest := daily[0]
		combined.Today = &latest
	}
	combined.Last7Days = daily[:min(7, len(daily))]
	combined.Last30Days = daily[:min(30, len(daily))]

	sort.SliceStable(combined.Projects, func(i, j int) bool {
		return combined.Projects[i].CostUSD > combined.Projects[j].CostUSD
	})
	return combined
}

// DiagnoseAll validates every resolved credential for every provider and
// returns the diagnoses grouped by provider tag. Providers run
// concurrently, credentials within a provider sequentially; the method
// never fails, it reports failures as diagnoses.
func (e *Engine) DiagnoseAll(ctx context.Context) map[string][]models.KeyDiagnosis {
	tags := e.Providers()
	perProvider := make([][]models.KeyDiagnosis, len(tags))

	var wg sync.WaitGroup
	for i, tag := range tags {
		wg.Add(1)
		go func(i int, client ProviderClient) {
			defer wg.Done()
			creds, err := ResolveCredentials(e.store, client)
			if err != nil {
				logger.Error("credential resolution failed", "provider", client.Tag(), "error", err)
				return
			}
			diags := make([]models.KeyDiagnosis, 0, len(creds))
			for _, cred := range creds {
				diags = append(diags, client.Diagnose(ctx, cred))
			}
			perProvider[i] = diags
		}(i, e.clients[tag])
	}
	wg.Wait()

	result := make(map[string][]models.KeyDiagnosis, len(tags))
	checked := 0
	for i, tag := range tags {
		result[tag] = perProvider[i]
		checked += len(perProvider[i])
	}
	if e.audit != nil {
		e.audit.Record("keys.diagnosed", "engine", "", map[string]string{
			"checked": strconv.Itoa(checked),
		})
	}
	return result
}

// buildDaily converts the per-date maps into a descending series of days
// that have data. Calendar gaps are not filled in.
func buildDaily(usage map[string]models.TokenCounts, costs map[string]float64) []models.DailyUsage {
	dates := lo.Uniq(append(lo.Keys(usage), lo.Keys(costs)...))
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	daily := make([]models.DailyUsage, 0, len(dates))
	for _, date := range dates {
		counts := usage[date]
		daily = append(daily, models.DailyUsage{
			Date:         date,
			InputTokens:  counts.InputTokens,
			OutputTokens: counts.OutputTokens,
			TotalTokens:  counts.InputTokens + counts.OutputTokens,
			Requests:     counts.Requests,
			CostUSD:      costs[date],
		})
	}
	return daily
}

// costWindows sums costs for today, the last 7 and the last 30 calendar
// days. A window of N days means today plus the N-1 days before it, so
// the 7-day window starts at now-6d and the 30-day window at now-29d,
// both ends inclusive. Dates are compared as YYYY-MM-DD strings in UTC.
func costWindows(costs map[string]float64, now time.Time) (today, week, month float64) {
	ref := now.UTC()
	todayStr := ref.Format(models.DateFormat)
	weekStart := ref.AddDate(0, 0, -6).Format(models.DateFormat)
	monthStart := ref.AddDate(0, 0, -29).Format(models.DateFormat)

	for date, cost := range costs {
		if date == todayStr {
			today += cost
		}
		if date >= weekStart {
			week += cost
		}
		if date >= monthStart {
			month += cost
		}
	}
	return today, week, month
}

func mergeUsage(dst, src map[string]models.TokenCounts) {
	for date, counts := range src {
		dst[date] = dst[date].Add(counts)
	}
}

func mergeCosts(dst, src map[string]float64) {
	for date, cost := range src {
		dst[date] += cost
	}
}
