package beet

import (
	"testing"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"
)

type BenchOrder struct {
	Owner    string
	Side     uint8
	Price    uint64
	Quantity uint32
	Tags     []string
	Fills    []int64
}

var benchOrder = BenchOrder{
	Owner:    "azerty",
	Side:     1,
	Price:    10_250,
	Quantity: 300,
	Tags:     []string{"hello", "world", "random"},
	Fills:    []int64{100, -250, 300},
}

func BenchmarkFixedStructEncoding(b *testing.B) {
	c, err := Reflect[Position](NewReflector())
	if err != nil {
		b.Fatal(err)
	}
	p := Position{X: 1, Y: 2}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = Serialize(c, p)
	}
}

func BenchmarkReflectedEncoding(b *testing.B) {
	c, err := Reflect[BenchOrder](NewReflector())
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = Serialize(c, benchOrder)
	}
}

func BenchmarkReflectedDecoding(b *testing.B) {
	c, err := Reflect[BenchOrder](NewReflector())
	if err != nil {
		b.Fatal(err)
	}
	data, err := Serialize(c, benchOrder)
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = Deserialize(c, data, 0)
	}
}

func BenchmarkStringArrayResolve(b *testing.B) {
	c := Array[string](UTF8String)
	value := []string{"a", "bb", "ccc", "dddd"}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = c.FromValue(value)
	}
}

func BenchmarkYaml(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		data, _ := yaml.Marshal(benchOrder)
		var out BenchOrder
		_ = yaml.Unmarshal(data, &out)
	}
}

func BenchmarkCBOR(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		data, _ := cbor.Marshal(benchOrder)
		var out BenchOrder
		_ = cbor.Unmarshal(data, &out)
	}
}
