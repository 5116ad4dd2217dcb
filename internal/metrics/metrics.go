// Package metrics exposes Prometheus collectors for the crawler.
//
// Collectors are registered once via Init. The observe helpers are safe to
// call before Init, which keeps unit tests free of registry setup.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	crawlPagesTotal   prometheus.Counter
	crawlRecordsTotal *prometheus.CounterVec
	shardsTotal       prometheus.Counter
	shardRecordsTotal prometheus.Counter
	uploadBytesTotal  prometheus.Counter

	once sync.Once
)

// Record result labels.
const (
	ResultAccepted  = "accepted"
	ResultDuplicate = "duplicate"
	ResultMalformed = "malformed"
)

// Init initializes the Prometheus collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		crawlPagesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tuchtrecht_pages_total",
				Help: "Total number of source pages fetched.",
			},
		)

		crawlRecordsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tuchtrecht_records_total",
				Help: "Total number of records encountered, labeled by result.",
			},
			[]string{"result"},
		)

		shardsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tuchtrecht_shards_total",
				Help: "Total number of shards uploaded.",
			},
		)

		shardRecordsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tuchtrecht_shard_records_total",
				Help: "Total number of records published in shards.",
			},
		)

		uploadBytesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tuchtrecht_upload_bytes_total",
				Help: "Total number of shard bytes uploaded.",
			},
		)
	})
}

// ObservePageFetched counts one fetched source page.
func ObservePageFetched() {
	if crawlPagesTotal != nil {
		crawlPagesTotal.Inc()
	}
}

// ObserveRecordAccepted counts one newly accepted record.
func ObserveRecordAccepted() {
	if crawlRecordsTotal != nil {
		crawlRecordsTotal.WithLabelValues(ResultAccepted).Inc()
	}
}

// ObserveDuplicateSkipped counts one record skipped via the visited set.
func ObserveDuplicateSkipped() {
	if crawlRecordsTotal != nil {
		crawlRecordsTotal.WithLabelValues(ResultDuplicate).Inc()
	}
}

// ObserveMalformedRecord counts one record dropped during parsing.
func ObserveMalformedRecord() {
	if crawlRecordsTotal != nil {
		crawlRecordsTotal.WithLabelValues(ResultMalformed).Inc()
	}
}

// ObserveShardUploaded counts one confirmed shard upload.
func ObserveShardUploaded(records int) {
	if shardsTotal != nil {
		shardsTotal.Inc()
	}
	if shardRecordsTotal != nil {
		shardRecordsTotal.Add(float64(records))
	}
}

// ObserveUploadBytes records shard payload bytes pushed to the remote.
func ObserveUploadBytes(n int) {
	if uploadBytesTotal != nil && n > 0 {
		uploadBytesTotal.Add(float64(n))
	}
}
