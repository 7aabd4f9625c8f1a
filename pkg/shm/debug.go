package shm

import (
	"context"
	"fmt"
	"io"

	"github.com/srediag/shmrecord/internal/logger"
	internalshm "github.com/srediag/shmrecord/internal/shm"
)

// SetLogLevel sets the level of the package logger, 0 (trace) to 5 (silent).
func SetLogLevel(l int) {
	logger.SetLevel(l)
}

// DebugSegmentDetail prints the size and guard of the named segment to w.
func DebugSegmentDetail(w io.Writer, name string) {
	info, err := Inspect(context.Background(), name)
	if err != nil {
		// a segment too small to inspect still has a size worth showing
		if size, serr := internalshm.Stat(name); serr == nil {
			fmt.Fprintf(w, "name:%s size:%d error:%v\n", name, size, err)
			return
		}
		fmt.Fprintln(w, err)
		return
	}
	fmt.Fprintf(w, "name:%s path:%s size:%d data:%d claimed:%t guard:%s\n",
		info.Name, info.Path, info.Size, info.DataSize, info.Claimed, info.Guard)
}
