package engine

import (
	"github.com/phuslu/log"
	"github.com/prometheus/client_golang/prometheus"

	"heron-db/bufferpool"
	"heron-db/disk"
	"heron-db/metrics"
)

/*
The engine wires the storage stack together: one disk manager owning the page
file, one buffer pool on top of it, and the metrics set they share. Heap
files are opened against a System and borrow all three.
*/

type Options struct {
	disk.Options
	PoolSize int
	// Registerer for the engine counters. Defaults to a private registry so
	// embedding applications that do not care about metrics need no setup.
	Registerer prometheus.Registerer
}

type System struct {
	Logger  log.Logger
	Disk    *disk.Manager
	Buf     *bufferpool.BufferManager
	Metrics *metrics.Set
}

func NewSystem(logger log.Logger, options Options) (*System, error) {
	reg := options.Registerer
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	set := metrics.New(reg)

	diskManager, err := disk.Open(logger, options.Options)
	if err != nil {
		logger.Error().Err(err).Msg("failed to open disk manager")
		return nil, err
	}

	buf := bufferpool.NewBufferManager(logger, diskManager, set, bufferpool.Options{
		PoolSize: options.PoolSize,
	})

	return &System{
		Logger:  logger,
		Disk:    diskManager,
		Buf:     buf,
		Metrics: set,
	}, nil
}

// Close flushes every dirty frame and closes the page file.
func (s *System) Close() error {
	if err := s.Buf.Flush(); err != nil {
		s.Logger.Error().Err(err).Msg("failed to flush buffer pool on close")
		return err
	}
	return s.Disk.Close()
}
