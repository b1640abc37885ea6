package maple

import (
	"github.com/ValentinKolb/eKV/lib/db"
	dbtesting "github.com/ValentinKolb/eKV/lib/db/testing"
	"testing"
)

func Test(t *testing.T) {
	dbtesting.RunDriverTests(t, "Maple", func() db.Driver {
		return NewDriver(nil)
	})
}

func TestSingleShard(t *testing.T) {
	dbtesting.RunDriverTests(t, "MapleSingleShard", func() db.Driver {
		return NewDriver(&DriverOptions{NumShards: 1, Threadsafe: true})
	})
}

func Benchmark(b *testing.B) {
	dbtesting.RunDriverBenchmarks(b, "Maple", func() db.Driver {
		return NewDriver(nil)
	})
}
