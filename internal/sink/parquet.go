package sink

import (
	"fmt"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/couchcryptid/air-quality-unifier/internal/domain"
)

// parquetRecord is the columnar layout. Missing values are nulls.
type parquetRecord struct {
	Time        time.Time `parquet:"time,timestamp"`
	PM25        *float64  `parquet:"PM2.5,optional"`
	PM10        *float64  `parquet:"PM10,optional"`
	O3          *float64  `parquet:"O3,optional"`
	NO2         *float64  `parquet:"NO2,optional"`
	SO2         *float64  `parquet:"SO2,optional"`
	CO          *float64  `parquet:"CO,optional"`
	Temperature *float64  `parquet:"temperature,optional"`
	Humidity    *float64  `parquet:"humidity,optional"`
	WindSpeed   *float64  `parquet:"wind_speed,optional"`
	NoDataFlag  bool      `parquet:"no_data_flag"`
}

func toParquet(r domain.UnifiedRecord) parquetRecord {
	return parquetRecord{
		Time:        r.Time.UTC(),
		PM25:        domain.Nullable(r.PM25),
		PM10:        domain.Nullable(r.PM10),
		O3:          domain.Nullable(r.O3),
		NO2:         domain.Nullable(r.NO2),
		SO2:         domain.Nullable(r.SO2),
		CO:          domain.Nullable(r.CO),
		Temperature: domain.Nullable(r.Temperature),
		Humidity:    domain.Nullable(r.Humidity),
		WindSpeed:   domain.Nullable(r.WindSpeed),
		NoDataFlag:  r.NoDataFlag,
	}
}

func fromParquet(p parquetRecord) domain.UnifiedRecord {
	return domain.UnifiedRecord{
		Time:        p.Time.UTC(),
		PM25:        domain.FromNullable(p.PM25),
		PM10:        domain.FromNullable(p.PM10),
		O3:          domain.FromNullable(p.O3),
		NO2:         domain.FromNullable(p.NO2),
		SO2:         domain.FromNullable(p.SO2),
		CO:          domain.FromNullable(p.CO),
		Temperature: domain.FromNullable(p.Temperature),
		Humidity:    domain.FromNullable(p.Humidity),
		WindSpeed:   domain.FromNullable(p.WindSpeed),
		NoDataFlag:  p.NoDataFlag,
	}
}

// ParquetWriter writes the table as a single Parquet file.
type ParquetWriter struct{}

func (ParquetWriter) Format() Format { return FormatParquet }

func (ParquetWriter) WriteFile(path string, records []domain.UnifiedRecord) error {
	rows := make([]parquetRecord, len(records))
	for i, r := range records {
		rows[i] = toParquet(r)
	}
	return parquet.WriteFile(path, rows)
}

func readParquet(path string) ([]domain.UnifiedRecord, error) {
	rows, err := parquet.ReadFile[parquetRecord](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet %s: %w", path, err)
	}
	out := make([]domain.UnifiedRecord, len(rows))
	for i, p := range rows {
		out[i] = fromParquet(p)
	}
	return out, nil
}
