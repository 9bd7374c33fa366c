package logger

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	gnet "github.com/shirou/gopsutil/v3/net" //cloudwatch

	"github.com/aws/aws-sdk-go-v2/aws"                              //cloudwatch
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types" //cloudwatch
)

type streamStat struct {
	messages int64
	bytes    int64
}

var (
	exportsDone  int64
	exportRows   int64
	filesWritten int64
	rowsWritten  int64
	s3Mirrors    int64
	warnCounts   sync.Map // map[string]*int64 keyed by component
	errorCounts  sync.Map // map[string]*int64 keyed by component
	streams      sync.Map // map[string]*streamStat
)

func recordWarn(component string) {
	v, _ := warnCounts.LoadOrStore(component, new(int64))
	atomic.AddInt64(v.(*int64), 1)
}

func recordError(component string) {
	v, _ := errorCounts.LoadOrStore(component, new(int64))
	atomic.AddInt64(v.(*int64), 1)
}

func IncrementExportRead(rows int, size int) {
	atomic.AddInt64(&exportsDone, 1)
	atomic.AddInt64(&exportRows, int64(rows))
	recordStream("finam_export", size)
}

func IncrementFileWrite(rows int, size int64) {
	atomic.AddInt64(&filesWritten, 1)
	atomic.AddInt64(&rowsWritten, int64(rows))
	recordStream("file_write", int(size))
}

func IncrementS3Mirror(size int64) {
	atomic.AddInt64(&s3Mirrors, 1)
	recordStream("s3_mirror", int(size))
}

func recordStream(name string, size int) {
	v, _ := streams.LoadOrStore(name, &streamStat{})
	ss := v.(*streamStat)
	atomic.AddInt64(&ss.messages, 1)
	atomic.AddInt64(&ss.bytes, int64(size))
}

// StreamStat is the cumulative traffic recorded for one named stream.
type StreamStat struct {
	Messages int64 `json:"messages"`
	Bytes    int64 `json:"bytes"`
}

// Stats is a point-in-time copy of the transfer counters this package keeps.
type Stats struct {
	Exports      int64                 `json:"exports"`
	ExportRows   int64                 `json:"export_rows"`
	FilesWritten int64                 `json:"files_written"`
	RowsWritten  int64                 `json:"rows_written"`
	S3Mirrors    int64                 `json:"s3_mirrors"`
	Warns        map[string]int64      `json:"warns"`
	Errors       map[string]int64      `json:"errors"`
	Streams      map[string]StreamStat `json:"streams"`
}

// StatsSnapshot copies the current counters for display surfaces such as
// the periodic runtime report and the run dashboard.
func StatsSnapshot() Stats {
	st := Stats{
		Exports:      atomic.LoadInt64(&exportsDone),
		ExportRows:   atomic.LoadInt64(&exportRows),
		FilesWritten: atomic.LoadInt64(&filesWritten),
		RowsWritten:  atomic.LoadInt64(&rowsWritten),
		S3Mirrors:    atomic.LoadInt64(&s3Mirrors),
		Warns:        map[string]int64{},
		Errors:       map[string]int64{},
		Streams:      map[string]StreamStat{},
	}
	warnCounts.Range(func(k, v any) bool {
		st.Warns[k.(string)] = atomic.LoadInt64(v.(*int64))
		return true
	})
	errorCounts.Range(func(k, v any) bool {
		st.Errors[k.(string)] = atomic.LoadInt64(v.(*int64))
		return true
	})
	streams.Range(func(k, v any) bool {
		ss := v.(*streamStat)
		st.Streams[k.(string)] = StreamStat{
			Messages: atomic.LoadInt64(&ss.messages),
			Bytes:    atomic.LoadInt64(&ss.bytes),
		}
		return true
	})
	return st
}

func startReport(ctx context.Context, log *Log, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case <-ticker.C:
				logReport(ctx, log)
			}
		}
	}()
}

// StartReport begins periodic logging of system and transfer statistics.
// It exposes the internal startReport function for use by other packages.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	startReport(ctx, log, interval)
}

func logReport(ctx context.Context, log *Log) {
	cpuPercent, _ := cpu.Percent(0, false)
	memStats, _ := mem.VirtualMemory()
	diskStats, _ := disk.Usage("/")
	netStats, _ := gnet.IOCounters(false)
	st := StatsSnapshot()

	cpuPct := 0.0
	if len(cpuPercent) > 0 {
		cpuPct = cpuPercent[0]
	}

	bytesSent := uint64(0)
	bytesRecv := uint64(0)
	if len(netStats) > 0 {
		bytesSent = netStats[0].BytesSent
		bytesRecv = netStats[0].BytesRecv
	}

	fields := Fields{
		"exports_done":   st.Exports,
		"export_rows":    st.ExportRows,
		"files_written":  st.FilesWritten,
		"rows_written":   st.RowsWritten,
		"s3_mirrors":     st.S3Mirrors,
		"warns":          st.Warns,
		"errors":         st.Errors,
		"goroutines":     runtime.NumGoroutine(),
		"cpu_percent":    cpuPct,
		"memory_mb":      int64(memStats.Used) / 1024 / 1024,
		"disk_mb":        int64(diskStats.Used) / 1024 / 1024,
		"streams":        st.Streams,
		"net_bytes_sent": int64(bytesSent),
		"net_bytes_recv": int64(bytesRecv),
	}

	log.WithComponent("report").WithFields(fields).Info("runtime report")

	var data []cwtypes.MetricDatum
	data = append(data,
		cwtypes.MetricDatum{MetricName: aws.String("Finflow-CPUPercent"), Unit: cwtypes.StandardUnitPercent, Value: aws.Float64(cpuPct)},
		cwtypes.MetricDatum{MetricName: aws.String("Finflow-MemoryMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(float64(memStats.Used) / 1024 / 1024)},
		cwtypes.MetricDatum{MetricName: aws.String("Finflow-DiskMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(float64(diskStats.Used) / 1024 / 1024)},
		cwtypes.MetricDatum{MetricName: aws.String("Finflow-Exports"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(st.Exports))},
		cwtypes.MetricDatum{MetricName: aws.String("Finflow-ExportRows"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(st.ExportRows))},
		cwtypes.MetricDatum{MetricName: aws.String("Finflow-FilesWritten"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(st.FilesWritten))},
		cwtypes.MetricDatum{MetricName: aws.String("Finflow-RowsWritten"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(st.RowsWritten))},
		cwtypes.MetricDatum{MetricName: aws.String("Finflow-S3Mirrors"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(st.S3Mirrors))},
		cwtypes.MetricDatum{MetricName: aws.String("Finflow-NetBytesSent"), Unit: cwtypes.StandardUnitBytes, Value: aws.Float64(float64(bytesSent))},
		cwtypes.MetricDatum{MetricName: aws.String("Finflow-NetBytesRecv"), Unit: cwtypes.StandardUnitBytes, Value: aws.Float64(float64(bytesRecv))},
	)

	for component, count := range st.Warns {
		data = append(data, cwtypes.MetricDatum{
			MetricName: aws.String("Finflow-Warns"),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: []cwtypes.Dimension{{Name: aws.String("Component"), Value: aws.String(component)}},
			Value:      aws.Float64(float64(count)),
		})
	}
	for component, count := range st.Errors {
		data = append(data, cwtypes.MetricDatum{
			MetricName: aws.String("Finflow-Errors"),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: []cwtypes.Dimension{{Name: aws.String("Component"), Value: aws.String(component)}},
			Value:      aws.Float64(float64(count)),
		})
	}

	for name, stats := range st.Streams {
		data = append(data,
			cwtypes.MetricDatum{
				MetricName: aws.String("Finflow-StreamMessages"),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: []cwtypes.Dimension{{Name: aws.String("Stream"), Value: aws.String(name)}},
				Value:      aws.Float64(float64(stats.Messages)),
			},
			cwtypes.MetricDatum{
				MetricName: aws.String("Finflow-StreamBytes"),
				Unit:       cwtypes.StandardUnitBytes,
				Dimensions: []cwtypes.Dimension{{Name: aws.String("Stream"), Value: aws.String(name)}},
				Value:      aws.Float64(float64(stats.Bytes)),
			},
		)
	}

	publishMetrics(ctx, data)
}
