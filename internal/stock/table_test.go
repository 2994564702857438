package stock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"storefront-service/internal/domain"
)

func TestTable_StockFor(t *testing.T) {
	table := NewTable(10,
		Entry{ProductID: "m1", Color: "Black", Size: "9", Quantity: 3},
		Entry{ProductID: "m1", Color: "White", Size: "9", Quantity: 0},
	)

	assert.Equal(t, 3, table.StockFor("m1", "Black", "9"))
	assert.Equal(t, 3, table.StockFor("m1", "Black", "9.0"), "numeric sizes compare by value")
	assert.Equal(t, 0, table.StockFor("m1", "White", "9"))
	assert.Equal(t, 10, table.StockFor("m1", "Black", "10"), "missing variant falls back to default")
	assert.Equal(t, 10, table.StockFor("unknown", "", ""))
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, 10, table.Default())
}

func TestTable_NeverNegative(t *testing.T) {
	table := NewTable(-5, Entry{ProductID: "p", Color: "c", Size: "s", Quantity: -2})
	assert.Equal(t, 0, table.StockFor("p", "c", "s"))
	assert.Equal(t, 0, table.StockFor("other", "c", "s"))
}

func TestTable_LaterEntryWins(t *testing.T) {
	table := NewTable(1,
		Entry{ProductID: "p", Color: "c", Size: "8", Quantity: 2},
		Entry{ProductID: "p", Color: "c", Size: "8.0", Quantity: 7},
	)
	assert.Equal(t, 7, table.StockForKey(domain.NewVariantKey("p", "c", "8")))
	assert.Equal(t, 1, table.Len())
}

func TestTable_NilIsEmpty(t *testing.T) {
	var table *Table
	assert.Equal(t, 0, table.StockFor("p", "c", "s"))
}

func TestTable_ConcurrentReaders(t *testing.T) {
	table := NewTable(4, Entry{ProductID: "p", Color: "c", Size: "s", Quantity: 9})
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.Equal(t, 9, table.StockFor("p", "c", "s"))
			}
		}()
	}
	wg.Wait()
}
