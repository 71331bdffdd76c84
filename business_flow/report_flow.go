package businessflow

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync/atomic"
	"time"

	"github.com/amirphl/fast-ads/logger"
	"github.com/amirphl/fast-ads/models"
	"github.com/amirphl/fast-ads/repository"
	"github.com/amirphl/fast-ads/utils"
	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"
)

const (
	reportBatchSize = 1000
	reportFanOut    = 2
)

// ReportFlow rolls raw tracking events up into daily report rows
type ReportFlow interface {
	// AggregateDay rebuilds the rows of the local calendar day containing day and returns how many were written
	AggregateDay(ctx context.Context, day time.Time) (int, error)
	// AggregateRange rebuilds every local day from from to to, both included
	AggregateRange(ctx context.Context, from, to time.Time) (int, error)
}

type ReportFlowImpl struct {
	eventRepo  repository.TrackingEventRepository
	reportRepo repository.AdReportRepository
	location   *time.Location
	log        *logger.Logger
	now        func() time.Time
}

func NewReportFlow(
	eventRepo repository.TrackingEventRepository,
	reportRepo repository.AdReportRepository,
	location *time.Location,
	log *logger.Logger,
) *ReportFlowImpl {
	if location == nil {
		location = time.UTC
	}
	return &ReportFlowImpl{
		eventRepo:  eventRepo,
		reportRepo: reportRepo,
		location:   location,
		log:        log,
		now:        utils.UTCNow,
	}
}

// reportKey groups events of one report row; zero ids stand for "none"
type reportKey struct {
	tenantID   uint
	adID       uint
	campaignID uint
	channelID  uint
	variantID  uint
}

type reportAccumulator struct {
	report   *models.AdReport
	sessions map[string]struct{}
}

func (f *ReportFlowImpl) AggregateDay(ctx context.Context, day time.Time) (written int, err error) {
	defer func() {
		if err != nil {
			err = NewBusinessError("REPORT_AGGREGATION_FAILED", "Report aggregation failed", err)
		}
	}()

	start := utils.StartOfDay(day.In(f.location))
	end := start.AddDate(0, 0, 1)
	y, m, d := start.Date()
	reportDate := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	groups := make(map[reportKey]*reportAccumulator)
	err = f.eventRepo.EachInRange(ctx, start, end, reportBatchSize, func(events []*models.TrackingEvent) error {
		for _, ev := range events {
			f.accumulate(groups, ev, reportDate)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan tracking events: %w", err)
	}

	reports := finalizeReports(groups, f.now())
	if err := f.reportRepo.ReplaceDay(ctx, reportDate, models.ReportGranularityDaily, reports); err != nil {
		return 0, err
	}
	reportRowsWritten.Add(float64(len(reports)))

	f.log.Info("Report day aggregated",
		"report_date", reportDate.Format(time.DateOnly),
		"time_zone", f.location.String(),
		"rows", len(reports))
	return len(reports), nil
}

func (f *ReportFlowImpl) AggregateRange(ctx context.Context, from, to time.Time) (int, error) {
	first := utils.StartOfDay(from.In(f.location))
	last := utils.StartOfDay(to.In(f.location))
	if last.Before(first) {
		return 0, NewBusinessError("REPORT_AGGREGATION_FAILED", "Report aggregation failed", ErrInvalidReportRange)
	}

	var total atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reportFanOut)
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		g.Go(func() error {
			n, err := f.AggregateDay(gctx, day)
			if err != nil {
				return fmt.Errorf("aggregate %s: %w", day.Format(time.DateOnly), err)
			}
			total.Add(int64(n))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(total.Load()), err
	}
	return int(total.Load()), nil
}

func (f *ReportFlowImpl) accumulate(groups map[reportKey]*reportAccumulator, ev *models.TrackingEvent, reportDate time.Time) {
	key := reportKey{
		tenantID:   ev.TenantID,
		adID:       ev.AdID,
		campaignID: utils.Deref(ev.CampaignID),
		channelID:  utils.Deref(ev.ChannelID),
		variantID:  utils.Deref(ev.VariantID),
	}
	acc, ok := groups[key]
	if !ok {
		acc = &reportAccumulator{
			report: &models.AdReport{
				TenantID:    ev.TenantID,
				AdID:        ev.AdID,
				CampaignID:  ev.CampaignID,
				ChannelID:   ev.ChannelID,
				VariantID:   ev.VariantID,
				ReportDate:  reportDate,
				Granularity: models.ReportGranularityDaily,
			},
			sessions: make(map[string]struct{}),
		}
		groups[key] = acc
	}

	r := acc.report
	switch ev.EventType {
	case models.EventTypeImpression:
		r.Impressions++
	case models.EventTypeStart:
		r.Starts++
	case models.EventTypeComplete:
		r.Completions++
		r.TotalDurationWatched += watchedSeconds(ev)
	case models.EventTypeClick:
		r.Clicks++
	}
	if ev.SessionID != nil && *ev.SessionID != "" {
		acc.sessions[*ev.SessionID] = struct{}{}
	}
}

// watchedSeconds reads metadata.duration of a complete event
func watchedSeconds(ev *models.TrackingEvent) int64 {
	if len(ev.Metadata) == 0 {
		return 0
	}
	var meta struct {
		Duration float64 `json:"duration"`
	}
	if err := json.Unmarshal(ev.Metadata, &meta); err != nil || meta.Duration < 0 {
		return 0
	}
	return int64(meta.Duration)
}

func finalizeReports(groups map[reportKey]*reportAccumulator, now time.Time) []*models.AdReport {
	keys := make([]reportKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.tenantID != b.tenantID {
			return a.tenantID < b.tenantID
		}
		if a.adID != b.adID {
			return a.adID < b.adID
		}
		if a.campaignID != b.campaignID {
			return a.campaignID < b.campaignID
		}
		if a.channelID != b.channelID {
			return a.channelID < b.channelID
		}
		return a.variantID < b.variantID
	})

	reports := make([]*models.AdReport, 0, len(keys))
	for _, k := range keys {
		acc := groups[k]
		r := acc.report
		r.UniqueViewers = int64(len(acc.sessions))
		r.CompletionRate = percentage(r.Completions, r.Impressions)
		r.ClickThroughRate = percentage(r.Clicks, r.Impressions)
		r.CreatedAt = now
		reports = append(reports, r)
	}
	return reports
}

// percentage is part/whole*100 rounded to two decimals, 0 when whole is 0
func percentage(part, whole int64) float64 {
	if whole == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(whole)*10000) / 100
}
