package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Set carries the storage engine counters. Purely passive; exposing them
// over HTTP is up to the embedding application.
type Set struct {
	PagePins        prometheus.Counter
	PageUnpins      prometheus.Counter
	PageFaults      prometheus.Counter
	PagesAllocated  prometheus.Counter
	PagesFreed      prometheus.Counter
	RecordsInserted prometheus.Counter
	RecordsDeleted  prometheus.Counter
}

func New(reg prometheus.Registerer) *Set {
	factory := promauto.With(reg)
	return &Set{
		PagePins: factory.NewCounter(prometheus.CounterOpts{
			Name: "herondb_page_pins_total",
			Help: "Pages pinned in the buffer pool",
		}),
		PageUnpins: factory.NewCounter(prometheus.CounterOpts{
			Name: "herondb_page_unpins_total",
			Help: "Pages unpinned from the buffer pool",
		}),
		PageFaults: factory.NewCounter(prometheus.CounterOpts{
			Name: "herondb_page_faults_total",
			Help: "Pins that had to read the page from disk",
		}),
		PagesAllocated: factory.NewCounter(prometheus.CounterOpts{
			Name: "herondb_pages_allocated_total",
			Help: "Pages allocated on disk",
		}),
		PagesFreed: factory.NewCounter(prometheus.CounterOpts{
			Name: "herondb_pages_freed_total",
			Help: "Pages returned to the disk freelist",
		}),
		RecordsInserted: factory.NewCounter(prometheus.CounterOpts{
			Name: "herondb_records_inserted_total",
			Help: "Records inserted across all heap files",
		}),
		RecordsDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "herondb_records_deleted_total",
			Help: "Records deleted across all heap files",
		}),
	}
}
