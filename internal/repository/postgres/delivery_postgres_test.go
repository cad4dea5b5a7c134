package postgres

import (
	"context"
	"testing"
	"time"

	"bookbuddy/internal/model"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var deliveryCols = []string{"id", "session_id", "source", "destination", "success", "status_code", "response_excerpt", "error", "payload_size", "created_at"}

func TestDeliveryPostgres_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	code := 200
	d := &model.Delivery{
		ID:              "d1",
		SessionID:       "s1",
		Source:          "voice_recording",
		Destination:     "https://hooks.example.com/x",
		Success:         true,
		StatusCode:      &code,
		ResponseExcerpt: "ok",
		PayloadSize:     321,
		CreatedAt:       now,
	}

	mock.ExpectQuery("INSERT INTO deliveries").
		WithArgs("d1", "s1", "voice_recording", "https://hooks.example.com/x", true, int64(200), "ok", "", 321, now).
		WillReturnRows(sqlmock.NewRows(deliveryCols).
			AddRow("d1", "s1", "voice_recording", "https://hooks.example.com/x", true, 200, "ok", "", 321, now))

	out, err := NewDeliveryPostgres(db).Create(context.Background(), d)

	require.NoError(t, err)
	require.NotNil(t, out.StatusCode)
	assert.Equal(t, 200, *out.StatusCode)
	assert.True(t, out.Success)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeliveryPostgres_CreateWithoutStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	d := &model.Delivery{ID: "d2", SessionID: "s1", Source: "manual_text", Destination: "https://h/x", Error: "Could not connect to webhook", CreatedAt: now}

	mock.ExpectQuery("INSERT INTO deliveries").
		WithArgs("d2", "s1", "manual_text", "https://h/x", false, nil, "", "Could not connect to webhook", 0, now).
		WillReturnRows(sqlmock.NewRows(deliveryCols).
			AddRow("d2", "s1", "manual_text", "https://h/x", false, nil, "", "Could not connect to webhook", 0, now))

	out, err := NewDeliveryPostgres(db).Create(context.Background(), d)

	require.NoError(t, err)
	assert.Nil(t, out.StatusCode)
	assert.Equal(t, "Could not connect to webhook", out.Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeliveryPostgres_ListRecent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM deliveries WHERE session_id = (.+) ORDER BY (.+) LIMIT").
		WithArgs("s1", 10).
		WillReturnRows(sqlmock.NewRows(deliveryCols).
			AddRow("d2", "s1", "manual_text", "https://h/x", false, 500, "", "Webhook returned status 500", 10, now).
			AddRow("d1", "s1", "manual_text", "https://h/x", true, 200, "ok", "", 10, now.Add(-time.Minute)))

	items, err := NewDeliveryPostgres(db).ListRecent(context.Background(), "s1", 10)

	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "d2", items[0].ID)
	assert.Equal(t, 500, *items[0].StatusCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}
