package cmd

import (
	"bufio"
	"encoding/json"
	"io"
	"iter"

	"github.com/likearthian/pagedstore"
)

// dumpRows writes rows through a buffer and reports a failed final flush.
func dumpRows(w io.Writer, rows iter.Seq2[pagedstore.Row, error]) (int, error) {
	out := bufio.NewWriter(w)

	n, err := writeRows(out, rows)
	if ferr := out.Flush(); err == nil {
		err = ferr
	}

	return n, err
}

// writeRows encodes rows as JSON lines until the sequence ends or fails.
func writeRows(out io.Writer, rows iter.Seq2[pagedstore.Row, error]) (int, error) {
	enc := json.NewEncoder(out)
	n := 0
	for row, err := range rows {
		if err != nil {
			return n, err
		}

		if err := enc.Encode(jsonRow(row)); err != nil {
			return n, err
		}
		n++
	}

	return n, nil
}

func jsonRow(row pagedstore.Row) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		out[k] = v
	}

	return out
}
