package saver

import (
	"github.com/parquet-go/parquet-go"

	"xau-data/internal/model"
)

// ParquetSaver writes the snapshot as Parquet (timestamps as Unix millis).
type ParquetSaver struct{}

func (ParquetSaver) Extension() string { return "parquet" }

type parquetBar struct {
	Date   int64   `parquet:"date"`
	Open   float64 `parquet:"open"`
	High   float64 `parquet:"high"`
	Low    float64 `parquet:"low"`
	Close  float64 `parquet:"close"`
	Volume float64 `parquet:"volume"`
}

func (ParquetSaver) Save(bars []model.Bar, path string) error {
	rows := make([]parquetBar, len(bars))
	for i, b := range bars {
		rows[i] = parquetBar{
			Date:   b.Time.UnixMilli(),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		}
	}
	return parquet.WriteFile(path, rows)
}
