package scd

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"tutorplan.io/tutorplan/internal/testutil"
)

type note struct {
	Revision
	Body string `gorm:"type:text;not null"`
}

func (note) TableName() string { return "scd_notes" }

func newSCDTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db := testutil.OpenGormPostgres(t, "scd")
	require.NoError(t, db.AutoMigrate(&note{}))
	require.NoError(t, db.Exec(CurrentIndexDDL(note{}.TableName())).Error)
	return db
}

func TestSubmit_FirstVersion(t *testing.T) {
	db := newSCDTestDB(t)
	ctx := context.Background()

	n := &note{Body: "hello"}
	require.NoError(t, Submit(ctx, db, n))

	assert.NotEqual(t, uuid.Nil, n.BusinessKey)
	assert.Equal(t, 1, n.Version)
	assert.True(t, n.IsCurrent)
	assert.Nil(t, n.ValidTo)
	assert.False(t, n.ValidFrom.IsZero())
}

func TestSubmit_ChainsVersions(t *testing.T) {
	db := newSCDTestDB(t)
	ctx := context.Background()

	first := &note{Body: "v1"}
	require.NoError(t, Submit(ctx, db, first))

	second := &note{Body: "v2"}
	second.BusinessKey = first.BusinessKey
	require.NoError(t, Submit(ctx, db, second))

	assert.Equal(t, 2, second.Version)
	assert.True(t, second.IsCurrent)

	var closed note
	require.NoError(t, db.Where("scd_id = ?", first.SCDID).Take(&closed).Error)
	assert.False(t, closed.IsCurrent)
	require.NotNil(t, closed.ValidTo)

	// The predecessor's valid_to is exactly the successor's valid_from:
	// no gap, no overlap.
	assert.True(t, closed.ValidTo.Equal(second.ValidFrom),
		"valid_to=%v valid_from=%v", closed.ValidTo, second.ValidFrom)

	var currentCount int64
	require.NoError(t, db.Model(&note{}).
		Where("business_key = ? AND is_current = ?", first.BusinessKey, true).
		Count(&currentCount).Error)
	assert.EqualValues(t, 1, currentCount)
}

func TestSubmit_HistoryIsAppendOnly(t *testing.T) {
	db := newSCDTestDB(t)
	ctx := context.Background()

	key := uuid.New()
	for i := 0; i < 4; i++ {
		n := &note{Body: "rev"}
		n.BusinessKey = key
		require.NoError(t, Submit(ctx, db, n))
	}

	var versions []int
	require.NoError(t, db.Model(&note{}).
		Where("business_key = ?", key).
		Order("version ASC").
		Pluck("version", &versions).Error)
	assert.Equal(t, []int{1, 2, 3, 4}, versions)
}

func TestSubmit_ConcurrentSameKey(t *testing.T) {
	db := newSCDTestDB(t)
	ctx := context.Background()

	key := uuid.New()
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			n := &note{Body: "racer"}
			n.BusinessKey = key
			errs[i] = Submit(ctx, db, n)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "submission %d", i)
	}

	// Both submissions land; the index guarantees one winner stayed
	// current and the loser chained onto it.
	var rows []note
	require.NoError(t, db.Where("business_key = ?", key).
		Order("version ASC").Find(&rows).Error)
	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].Version)
	assert.Equal(t, 2, rows[1].Version)
	assert.False(t, rows[0].IsCurrent)
	assert.True(t, rows[1].IsCurrent)
}

func TestSubmit_ValidFromIsUTC(t *testing.T) {
	db := newSCDTestDB(t)

	n := &note{Body: "tz"}
	require.NoError(t, Submit(context.Background(), db, n))
	assert.WithinDuration(t, time.Now().UTC(), n.ValidFrom, time.Minute)
}
