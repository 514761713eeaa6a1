package monitoring

import (
	"sync/atomic"

	"github.com/pkoukk/tiktoken-go"
)

// The first cl100k_base load may fetch the BPE file, so it runs in the
// background; estimates use len/4 until the encoding is ready.
var (
	encoder      atomic.Pointer[tiktoken.Tiktoken]
	loading      atomic.Bool
	loadEncoding = func() (*tiktoken.Tiktoken, error) {
		return tiktoken.GetEncoding("cl100k_base")
	}
)

// WarmTokenizer starts loading the encoding once. It never blocks.
func WarmTokenizer() {
	if !loading.CompareAndSwap(false, true) {
		return
	}
	load := loadEncoding
	go func() {
		if e, err := load(); err == nil {
			encoder.Store(e)
		}
	}()
}

// EstimateTokens counts cl100k_base tokens in text, or len/4 while the
// encoding is unavailable.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	WarmTokenizer()
	if e := encoder.Load(); e != nil {
		return len(e.Encode(text, nil, nil))
	}
	return (len(text) + 3) / 4
}
