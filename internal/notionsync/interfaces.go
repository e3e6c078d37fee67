package notionsync

import (
	"context"

	infra "github.com/dvloznov/expense-settler/internal/infra/bigquery"
	"github.com/jomei/notionapi"
)

// NotionService defines the Notion operations used for publishing.
// This interface enables mocking and testing of Notion operations.
type NotionService interface {
	// CreatePage creates a new page in a Notion database with the given properties.
	CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error)

	// UpdatePage updates an existing Notion page with the given properties.
	UpdatePage(ctx context.Context, pageID string, properties notionapi.Properties) (*notionapi.Page, error)

	// QueryDatabase queries a Notion database with the given request.
	QueryDatabase(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)

	// DeletePage archives a page.
	DeletePage(ctx context.Context, pageID string) error
}

// SettlementReader loads a stored settlement plan.
type SettlementReader interface {
	ListSettlementsByRun(ctx context.Context, runID string) ([]*infra.SettlementRow, error)
}

var (
	_ NotionService    = (*NotionClient)(nil)
	_ SettlementReader = (*infra.SettlementRepository)(nil)
)
