package export

import (
	"fmt"
	"io"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/panelwell/panelwell/internal/panel"
)

// ArrowSchema is the long-format dataset schema used for IPC export.
var ArrowSchema = arrow.NewSchema([]arrow.Field{
	{Name: "subject", Type: arrow.BinaryTypes.String},
	{Name: "group", Type: arrow.BinaryTypes.String},
	{Name: "time", Type: arrow.PrimitiveTypes.Float64},
	{Name: "score", Type: arrow.PrimitiveTypes.Float64},
}, nil)

// WriteArrowIPC writes a dataset as a single-batch Arrow IPC stream.
// The output is readable by pandas, polars, and R's arrow package.
func WriteArrowIPC(w io.Writer, d *panel.Dataset) error {
	if len(d.Obs) == 0 {
		return fmt.Errorf("dataset %s has no observations", d.ID)
	}

	pool := memory.NewGoAllocator()

	builder := array.NewRecordBuilder(pool, ArrowSchema)
	defer builder.Release()

	subjects := builder.Field(0).(*array.StringBuilder)
	groups := builder.Field(1).(*array.StringBuilder)
	times := builder.Field(2).(*array.Float64Builder)
	scores := builder.Field(3).(*array.Float64Builder)

	for _, o := range d.Obs {
		subjects.Append(o.Subject)
		groups.Append(string(o.Group))
		times.Append(o.Time)
		scores.Append(o.Score)
	}

	rec := builder.NewRecord()
	defer rec.Release()

	fw := ipc.NewWriter(w, ipc.WithSchema(ArrowSchema), ipc.WithAllocator(pool))

	if err := fw.Write(rec); err != nil {
		fw.Close()
		return fmt.Errorf("writing record batch: %w", err)
	}

	if err := fw.Close(); err != nil {
		return fmt.Errorf("closing IPC writer: %w", err)
	}
	return nil
}
