package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

// InsertBalancesWithClient streams balance rows into the balances table.
func InsertBalancesWithClient(ctx context.Context, client *bigquery.Client, datasetID string, rows []*BalanceRow) error {
	if len(rows) == 0 {
		return nil
	}

	inserter := client.Dataset(datasetID).Table(balancesTable).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertBalances: inserting rows: %w", err)
	}

	return nil
}

// InsertSettlementsWithClient streams settlement rows into the settlements table.
func InsertSettlementsWithClient(ctx context.Context, client *bigquery.Client, datasetID string, rows []*SettlementRow) error {
	if len(rows) == 0 {
		return nil
	}

	inserter := client.Dataset(datasetID).Table(settlementsTable).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertSettlements: inserting rows: %w", err)
	}

	return nil
}

// ListBalancesByRunWithClient returns a run's balances sorted by participant.
func ListBalancesByRunWithClient(ctx context.Context, client *bigquery.Client, datasetID, runID string) ([]*BalanceRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			run_id,
			participant,
			balance,
			created_ts
		FROM %s
		WHERE run_id = @run_id
		ORDER BY participant
	`, tableRef(client, datasetID, balancesTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "run_id", Value: runID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListBalancesByRun: query read: %w", err)
	}

	var rows []*BalanceRow
	for {
		var r BalanceRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListBalancesByRun: iter next: %w", err)
		}
		rows = append(rows, &r)
	}

	return rows, nil
}

// ListSettlementsByRunWithClient returns a run's settlements in emission order.
func ListSettlementsByRunWithClient(ctx context.Context, client *bigquery.Client, datasetID, runID string) ([]*SettlementRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			run_id,
			seq,
			from_participant,
			to_participant,
			amount,
			created_ts
		FROM %s
		WHERE run_id = @run_id
		ORDER BY seq
	`, tableRef(client, datasetID, settlementsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "run_id", Value: runID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListSettlementsByRun: query read: %w", err)
	}

	var rows []*SettlementRow
	for {
		var r SettlementRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListSettlementsByRun: iter next: %w", err)
		}
		rows = append(rows, &r)
	}

	return rows, nil
}
