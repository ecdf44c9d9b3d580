package core

// export.go writes every product as CSV.
//
// The header row is bare; every data value is double-quoted with inner quotes
// doubled, and a missing image is written as "". Lines are separated by "\n"
// with no trailing newline. encoding/csv only quotes when needed, so the
// quoting is done here.

import (
	"bufio"
	"context"
	"io"
	"strconv"
	"strings"
)

// ExportColumns is the header row of an export.
var ExportColumns = []string{"id", "name", "unit", "category", "brand", "stock", "status", "image"}

// ExportProducts writes all products to w.
func (s *Service) ExportProducts(ctx context.Context, w io.Writer) error {
	products, err := s.ListProducts(ctx, ProductFilter{})
	if err != nil {
		return err
	}
	return EncodeProducts(w, products)
}

// EncodeProducts writes products to w in export format.
func EncodeProducts(w io.Writer, products []Product) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(strings.Join(ExportColumns, ","))

	for _, p := range products {
		image := ""
		if p.Image != nil {
			image = *p.Image
		}
		values := []string{
			strconv.FormatInt(p.ID, 10),
			p.Name,
			p.Unit,
			p.Category,
			p.Brand,
			strconv.FormatInt(p.Stock, 10),
			p.Status,
			image,
		}

		bw.WriteByte('\n')
		for i, v := range values {
			if i > 0 {
				bw.WriteByte(',')
			}
			bw.WriteString(quoteField(v))
		}
	}
	return bw.Flush()
}

func quoteField(v string) string {
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}
