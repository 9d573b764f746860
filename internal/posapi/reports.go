package posapi

import (
	"context"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// DashboardRange is the window of the dashboard KPIs.
type DashboardRange string

const (
	RangeToday DashboardRange = "today"
	RangeWeek  DashboardRange = "week"
	RangeMonth DashboardRange = "month"
)

func ParseDashboardRange(s string) (DashboardRange, error) {
	switch DashboardRange(s) {
	case "":
		return RangeToday, nil
	case RangeToday, RangeWeek, RangeMonth:
		return DashboardRange(s), nil
	default:
		return "", fmt.Errorf("unknown range %q (want today, week or month)", s)
	}
}

func (c *Client) DashboardStats(ctx context.Context, r DashboardRange) (DashboardStats, error) {
	if r == "" {
		r = RangeToday
	}
	var stats DashboardStats
	if err := c.get(ctx, "/transactions/dashboard-stats/", map[string]string{"range": string(r)}, &stats); err != nil {
		return DashboardStats{}, err
	}
	return stats, nil
}

// Period is an inclusive date range; zero bounds are left to the server.
type Period struct {
	Start time.Time
	End   time.Time
}

func (p Period) query() map[string]string {
	q := map[string]string{}
	if !p.Start.IsZero() {
		q["start_date"] = p.Start.Format(dateLayout)
	}
	if !p.End.IsZero() {
		q["end_date"] = p.End.Format(dateLayout)
	}
	return q
}

func (p Period) Validate() error {
	if !p.Start.IsZero() && !p.End.IsZero() && p.End.Before(p.Start) {
		return fmt.Errorf("end date %s is before start date %s", p.End.Format(dateLayout), p.Start.Format(dateLayout))
	}
	return nil
}

func ParsePeriod(start, end string) (Period, error) {
	var p Period
	var err error
	if start != "" {
		if p.Start, err = time.Parse(dateLayout, start); err != nil {
			return Period{}, fmt.Errorf("parse start date: %w", err)
		}
	}
	if end != "" {
		if p.End, err = time.Parse(dateLayout, end); err != nil {
			return Period{}, fmt.Errorf("parse end date: %w", err)
		}
	}
	return p, p.Validate()
}

func (c *Client) CashFlow(ctx context.Context, p Period) (CashFlowReport, error) {
	if err := p.Validate(); err != nil {
		return CashFlowReport{}, err
	}
	var report CashFlowReport
	if err := c.get(ctx, "/transactions/laporan/arus-kas/", p.query(), &report); err != nil {
		return CashFlowReport{}, err
	}
	return report, nil
}

func (c *Client) ProfitLoss(ctx context.Context, p Period) (ProfitLossReport, error) {
	if err := p.Validate(); err != nil {
		return ProfitLossReport{}, err
	}
	var report ProfitLossReport
	if err := c.get(ctx, "/transactions/laporan/laba-rugi/", p.query(), &report); err != nil {
		return ProfitLossReport{}, err
	}
	return report, nil
}

func (c *Client) RecentActivity(ctx context.Context) ([]Activity, error) {
	var activities []Activity
	if err := c.get(ctx, "/transactions/aktivitas-terbaru/", nil, &activities); err != nil {
		return nil, err
	}
	return activities, nil
}
