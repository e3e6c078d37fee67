package notionsync

import (
	"context"
	"fmt"

	infra "github.com/dvloznov/expense-settler/internal/infra/bigquery"
	"github.com/dvloznov/expense-settler/internal/ledger"
	"github.com/dvloznov/expense-settler/internal/logger"
	"github.com/jomei/notionapi"
)

const (
	// QueryPageSize is the page size used when listing database pages.
	QueryPageSize = 100
)

// Publisher mirrors settlement plans into a Notion database, one page per
// settlement. Publishing the same run twice is a no-op.
type Publisher struct {
	notion     NotionService
	databaseID string
	dryRun     bool
}

// NewPublisher creates a Publisher. With dryRun set nothing is written and
// the intended changes are only logged.
func NewPublisher(notion NotionService, databaseID string, dryRun bool) *Publisher {
	return &Publisher{
		notion:     notion,
		databaseID: databaseID,
		dryRun:     dryRun,
	}
}

// PublishSettlements makes the pages of runID match settlements: missing
// settlements are created, pages showing a different payment are updated,
// matching ones skipped and pages that no longer belong to the plan
// archived. Individual page failures are logged and reported together once
// every settlement has been tried.
func (p *Publisher) PublishSettlements(ctx context.Context, runID string, settlements []ledger.Settlement) error {
	log := logger.FromContext(ctx)

	log.Info().
		Str("run_id", runID).
		Int("settlement_count", len(settlements)).
		Bool("dry_run", p.dryRun).
		Msg("Publishing settlements to Notion")

	pages, err := queryAllNotionPages(ctx, p.notion, p.databaseID)
	if err != nil {
		return fmt.Errorf("PublishSettlements: %w", err)
	}

	wanted := make(map[string]bool, len(settlements))
	for i := range settlements {
		wanted[SettlementKey(runID, i+1)] = true
	}

	existing := make(map[string]notionapi.Page)
	var archived, failed int
	for _, page := range pages {
		if extractRunID(page) != runID {
			continue
		}
		key := extractSettlementKey(page)
		if _, dup := existing[key]; wanted[key] && !dup {
			existing[key] = page
			continue
		}

		if p.dryRun {
			log.Info().
				Str("settlement_id", key).
				Str("page_id", string(page.ID)).
				Msg("[DRY RUN] Would archive stale Notion page")
			archived++
			continue
		}
		if err := p.notion.DeletePage(ctx, string(page.ID)); err != nil {
			log.Warn().
				Err(err).
				Str("settlement_id", key).
				Str("page_id", string(page.ID)).
				Msg("Failed to archive stale Notion page")
			failed++
			continue
		}
		archived++
	}

	var created, updated, skipped int
	for i, s := range settlements {
		seq := i + 1
		key := SettlementKey(runID, seq)
		if page, ok := existing[key]; ok {
			if pageMatchesSettlement(page, s) {
				skipped++
				continue
			}
			if p.dryRun {
				log.Info().
					Str("settlement_id", key).
					Str("page_id", string(page.ID)).
					Str("settlement", s.String()).
					Msg("[DRY RUN] Would update Notion page")
				updated++
				continue
			}
			if _, err := p.notion.UpdatePage(ctx, string(page.ID), SettlementToNotionProperties(runID, seq, s)); err != nil {
				log.Warn().
					Err(err).
					Str("settlement_id", key).
					Str("page_id", string(page.ID)).
					Msg("Failed to update Notion page")
				failed++
				continue
			}
			updated++
			continue
		}

		if p.dryRun {
			log.Info().
				Str("settlement_id", key).
				Str("settlement", s.String()).
				Msg("[DRY RUN] Would create Notion page")
			created++
			continue
		}

		page, err := p.notion.CreatePage(ctx, p.databaseID, SettlementToNotionProperties(runID, seq, s))
		if err != nil {
			log.Warn().
				Err(err).
				Str("settlement_id", key).
				Msg("Failed to create Notion page")
			failed++
			continue
		}
		log.Debug().
			Str("settlement_id", key).
			Str("page_id", string(page.ID)).
			Msg("Created Notion page")
		created++
	}

	log.Info().
		Str("run_id", runID).
		Int("created", created).
		Int("updated", updated).
		Int("skipped", skipped).
		Int("archived", archived).
		Int("failed", failed).
		Msg("Settlement publish completed")

	if failed > 0 {
		return fmt.Errorf("PublishSettlements: %d Notion page operations failed for run %s", failed, runID)
	}
	return nil
}

// SyncRun publishes the stored settlement plan of runID.
func (p *Publisher) SyncRun(ctx context.Context, reader SettlementReader, runID string) error {
	rows, err := reader.ListSettlementsByRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("SyncRun: %w", err)
	}
	return p.PublishSettlements(ctx, runID, infra.SettlementsFromRows(rows))
}

// queryAllNotionPages returns every page in a database, following cursors.
func queryAllNotionPages(ctx context.Context, notion NotionService, databaseID string) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			PageSize: QueryPageSize,
		}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notion.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}

		allPages = append(allPages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return allPages, nil
}
