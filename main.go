package main

import (
	"errors"
	"os"
	"path/filepath"

	"heron-db/disk"
	"heron-db/engine"
	"heron-db/heapfile"
	"heron-db/logging"
)

func main() {
	logger := logging.CreateDebugLogger()

	if err := os.MkdirAll("test", 0755); err != nil {
		logger.Error().Err(err).Msg("failed to create data directory")
		return
	}

	sys, err := engine.NewSystem(*logger, engine.Options{
		Options: disk.Options{
			Path:     filepath.Join("test", "heron.db"),
			Capacity: 1024,
		},
		PoolSize: 64,
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to start storage engine")
		return
	}
	defer sys.Close()

	hf, err := heapfile.Open(sys, "demo")
	if err != nil {
		logger.Error().Err(err).Msg("failed to open heap file")
		return
	}
	defer hf.Close()

	rid, err := hf.InsertRecord([]byte("hello world"))
	if err != nil {
		logger.Error().Err(err).Msg("insert failed")
		return
	}

	record, err := hf.SelectRecord(rid)
	if err != nil {
		logger.Error().Err(err).Msg("select failed")
		return
	}
	logger.Info().Str("rid", rid.String()).Msg(string(record))

	scan, err := hf.OpenScan()
	if err != nil {
		logger.Error().Err(err).Msg("scan open failed")
		return
	}
	defer scan.Close()

	for {
		rid, record, err := scan.Next()
		if errors.Is(err, heapfile.ErrEndOfScan) {
			break
		}
		if err != nil {
			logger.Error().Err(err).Msg("scan failed")
			return
		}
		logger.Info().Str("rid", rid.String()).Msgf("scanned %d bytes", len(record))
	}

	count, err := hf.RecordCount()
	if err != nil {
		logger.Error().Err(err).Msg("count failed")
		return
	}
	logger.Info().Msgf("heap file %s holds %d records", hf, count)
}
