package bootstrap

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/rawblock/utxo-lifecycle-engine/pkg/models"
)

// csvColumns is the Chainstate Bootstrap's row schema (spec §4.4):
// transaction-id, output-index, block height of creation, coinbase flag,
// satoshi amount, script type, address.
const csvColumns = 7

// csvRow is one parsed chainstate dump row, before its timestamp is
// resolved (the CSV carries height, not a timestamp — C4 backfills that
// from the chain source in bulk, see resolveHeights).
type csvRow struct {
	TxID       string
	Vout       uint32
	Height     int64
	Coinbase   bool
	Satoshis   int64
	ScriptType models.ScriptType
	Address    *string
}

func parseCSVRow(record []string, lineNum int) (csvRow, error) {
	if len(record) != csvColumns {
		return csvRow{}, fmt.Errorf("bootstrap: csv line %d: expected %d columns, got %d", lineNum, csvColumns, len(record))
	}

	vout, err := strconv.ParseUint(record[1], 10, 32)
	if err != nil {
		return csvRow{}, fmt.Errorf("bootstrap: csv line %d: vout: %w", lineNum, err)
	}
	height, err := strconv.ParseInt(record[2], 10, 64)
	if err != nil {
		return csvRow{}, fmt.Errorf("bootstrap: csv line %d: height: %w", lineNum, err)
	}
	coinbase, err := strconv.ParseBool(record[3])
	if err != nil {
		return csvRow{}, fmt.Errorf("bootstrap: csv line %d: coinbase: %w", lineNum, err)
	}
	satoshis, err := strconv.ParseInt(record[4], 10, 64)
	if err != nil {
		return csvRow{}, fmt.Errorf("bootstrap: csv line %d: satoshis: %w", lineNum, err)
	}

	var addr *string
	if record[6] != "" {
		a := record[6]
		addr = &a
	}

	return csvRow{
		TxID:       record[0],
		Vout:       uint32(vout),
		Height:     height,
		Coinbase:   coinbase,
		Satoshis:   satoshis,
		ScriptType: models.ScriptType(record[5]),
		Address:    addr,
	}, nil
}

// scanCSV streams rows out of r in batches of at most batchSize, calling
// onBatch for each — the chainstate dump is assumed too large (~200M rows)
// to hold in memory at once (spec §5).
func scanCSV(r io.Reader, batchSize int, onBatch func(batch []csvRow) error) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = csvColumns
	reader.ReuseRecord = true

	batch := make([]csvRow, 0, batchSize)
	lineNum := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("bootstrap: csv read: %w", err)
		}
		lineNum++

		row, err := parseCSVRow(record, lineNum)
		if err != nil {
			return err
		}
		batch = append(batch, row)

		if len(batch) >= batchSize {
			if err := onBatch(batch); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}

	if len(batch) > 0 {
		return onBatch(batch)
	}
	return nil
}
