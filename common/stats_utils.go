package common

import (
	"github.com/sirupsen/logrus"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

func CreateView(measure stats.Measure, agg *view.Aggregation, tagKeys []string) *view.View {
	return &view.View{
		Name:        measure.Name(),
		Description: measure.Description(),
		Measure:     measure,
		TagKeys:     makeKeys(tagKeys),
		Aggregation: agg,
	}
}

func CreateViewWithTags(measure stats.Measure, agg *view.Aggregation, tags []tag.Key) *view.View {
	return &view.View{
		Name:        measure.Name(),
		Description: measure.Description(),
		Measure:     measure,
		TagKeys:     tags,
		Aggregation: agg,
	}
}

func MakeMeasure(name string, desc string, unit string) *stats.Int64Measure {
	return stats.Int64(name, desc, unit)
}

func MakeKey(name string) tag.Key {
	key, err := tag.NewKey(name)
	if err != nil {
		logrus.Fatal(err)
	}
	return key
}

func makeKeys(names []string) []tag.Key {
	tagKeys := make([]tag.Key, len(names))
	for i, name := range names {
		key, err := tag.NewKey(name)
		if err != nil {
			logrus.Fatal(err)
		}
		tagKeys[i] = key
	}
	return tagKeys
}

// GenerateLogScaleHistogramBuckets returns count log scale buckets below max,
// each half the previous, with a leading zero bucket.
func GenerateLogScaleHistogramBuckets(max float64, count int) []float64 {
	buckets := make([]float64, count+1)
	next := max
	for i := count; i >= 1; i-- {
		buckets[i] = next
		next = next / 2
	}
	buckets[0] = 0
	return buckets
}

// GenerateLogScaleHistogramBucketsWithRange returns log scale buckets from
// max down past min, each half the previous. min must be greater than zero.
func GenerateLogScaleHistogramBucketsWithRange(min, max float64) []float64 {
	var buckets []float64
	for v := max; ; v /= 2 {
		buckets = append([]float64{v}, buckets...)
		if v < min {
			break
		}
	}
	return buckets
}

// GenerateLinearHistogramBuckets returns count equal width buckets between
// min and max inclusive.
func GenerateLinearHistogramBuckets(min, max float64, count int) []float64 {
	step := (max - min) / float64(count)
	buckets := make([]float64, count+1)
	for i := range buckets {
		buckets[i] = min + float64(i)*step
	}
	return buckets
}
