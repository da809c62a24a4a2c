//go:build integration

package migrate

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/aussiebroadwan/medmigrate/internal/testutil/mongotest"
	"github.com/stretchr/testify/require"
)

func TestMongoCollectionPipeline(t *testing.T) {
	ctx := context.Background()
	client := mongotest.Start(t)

	l := &Loader{
		Coll:      NewMongoCollection(client.Database("medical").Collection("patients")),
		BatchSize: 1,
	}

	report, err := l.Import(ctx, strings.NewReader(patientsCSV))
	require.NoError(t, err)
	require.Equal(t, 2, report.Inserted)

	stored, err := l.Snapshot(ctx)
	require.NoError(t, err)
	// The Notes cell is empty in the source, so only the null check fails.
	err = CheckIntegrity(readTable(t, patientsCSV), stored)
	require.ErrorIs(t, err, ErrNulls)
	require.NotErrorIs(t, err, ErrRowCount)
	require.NotErrorIs(t, err, ErrColumns)
	require.NotErrorIs(t, err, ErrDuplicates)

	docs, err := l.Find(ctx, `{"Billing Amount": {"$gt": 15000}}`)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	res, err := l.UpdateMany(ctx, `{"Follow-up Required": false}`, `{"$set": {"Notes": "call back"}}`)
	require.NoError(t, err)
	require.Equal(t, UpdateResult{Matched: 1, Modified: 1}, res)

	n, err := l.DeleteOne(ctx, `{"Name": "Luis"}`)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	var out bytes.Buffer
	rows, err := l.Export(ctx, &out)
	require.NoError(t, err)
	require.Equal(t, 1, rows)
	require.NotContains(t, out.String(), "_id")
	require.True(t, strings.HasPrefix(out.String(), "Name,Age,Billing Amount,"))

	require.NoError(t, l.Drop(ctx))
	docs, err = l.Find(ctx, "")
	require.NoError(t, err)
	require.Empty(t, docs)
}
