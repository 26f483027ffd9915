package restyutil

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
)

type InstrumentOutput interface {
	Write(id string, contents string)
}

// DumpMessages writes every response the client receives to output, a nil
// output makes this a no-op. Message ids are prefixed with prefix so that
// concurrent clients sharing an output stay apart.
func DumpMessages(client *resty.Client, prefix string, output InstrumentOutput) {
	if output == nil {
		return
	}

	var idcounter uint64
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		id := atomic.AddUint64(&idcounter, 1)
		output.Write(
			fmt.Sprintf("%s-%03d.txt", prefix, id),
			FormatHttpMessage(res),
		)
		return nil
	})
}

// MessagePrefix returns a prefix unique enough to separate dumps of
// different sessions.
func MessagePrefix(name string) string {
	return fmt.Sprintf("%s-%d", name, time.Now().UnixNano())
}
