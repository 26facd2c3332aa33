package ioctx

import (
	"os"
	"time"

	"github.com/flowkit/aio"
	"github.com/flowkit/aio/chain"
	"github.com/flowkit/aio/id"
	"github.com/flowkit/aio/internal/uring"
	"github.com/flowkit/aio/rawdata"
	"golang.org/x/sys/unix"
)

// MapFile opens path (creating it if necessary) and registers it as a
// tracked fd, returning its id.ID.
func (c *Context) MapFile(path string, writable bool) (id.ID, error) {
	full := path
	if c.cfg.PrefixDirectory != "" {
		full = c.cfg.PrefixDirectory + "/" + path
	}

	flags := os.O_RDONLY
	if writable {
		flags = os.O_RDWR | os.O_CREATE
	}
	f, err := os.OpenFile(full, flags, 0o644)
	if err != nil {
		c.logf("map_file %q failed: %v", full, err)
		return id.None, aio.WrapError("map_file", err)
	}
	osFD := dupFD(f)
	f.Close()
	if osFD < 0 {
		c.logf("map_file %q: dup failed", full)
		return id.None, aio.NewError("map_file", aio.CodeIOFailure, "dup failed")
	}

	fid := c.registerFD(&fdEntry{osFD: osFD, kind: fdFile, path: full})
	c.debugf("mapped file %q as fd %s", full, fid)
	return fid, nil
}

// QueueRead submits a read of up to size bytes at offset (WholeFile
// reads the file's current size at submission time) and returns a chain
// that resolves to (data, eof, errno).
func (c *Context) QueueRead(fid id.ID, size uint32, offset uint64) chain.Chain3[rawdata.Data, bool, uint32] {
	ch, st := chain.New3[rawdata.Data, bool, uint32]()

	e, ok := c.lookupOpenFD(fid)
	if !ok {
		st.Complete(rawdata.Data{}, false, uint32(unix.EBADF))
		return ch
	}

	if size == WholeFile {
		if fileSize, err := statFD(e.osFD); err == nil {
			size = uint32(fileSize)
		} else {
			size = 0
		}
	}

	buf := allocBuffer(size)
	ud := c.nextUserData()
	start := time.Now()

	c.registerCompleter(ud, fid, func(res uring.Result) {
		latency := uint64(time.Since(start).Nanoseconds())
		if res.Res < 0 {
			if c.metrics != nil {
				c.metrics.RecordRead(0, latency, false)
			}
			c.logf("read on fd %s failed: errno %d", fid, -res.Res)
			st.Complete(rawdata.Data{}, false, uint32(-res.Res))
			return
		}
		n := int(res.Res)
		eof := n < len(buf)
		if c.metrics != nil {
			c.metrics.RecordRead(uint64(n), latency, true)
		}
		st.Complete(rawdata.Wrap(buf[:n]), eof, 0)
	})

	if err := c.ring.PrepareRead(e.osFD, buf, int64(offset), ud); err != nil {
		c.abortCompleter(ud)
		st.Complete(rawdata.Data{}, false, uint32(unix.EIO))
	}
	return ch
}

// QueueWrite submits a write of data.Bytes() at offset. Append
// synchronously reserves the next append slot under fid's own lock so
// multiple concurrent QueueWrite(..., Append) calls land in the file in
// the same order they were issued, regardless of completion order. Per
// spec.md §4.3's write_chain = chain<raw_data, bool, u32>, the buffer is
// moved back to the caller on completion (success or failure) so it can
// be recycled rather than discarded.
func (c *Context) QueueWrite(fid id.ID, data rawdata.Data, offset uint64) chain.Chain3[rawdata.Data, bool, uint32] {
	ch, st := chain.New3[rawdata.Data, bool, uint32]()

	e, ok := c.lookupOpenFD(fid)
	if !ok {
		st.Complete(data, false, uint32(unix.EBADF))
		return ch
	}

	actualOffset := int64(offset)
	if offset == Append {
		e.mu.Lock()
		actualOffset = int64(e.appendOff)
		e.appendOff += uint64(data.Size())
		e.mu.Unlock()
	}

	buf := data.Bytes()
	ud := c.nextUserData()
	start := time.Now()

	c.registerCompleter(ud, fid, func(res uring.Result) {
		latency := uint64(time.Since(start).Nanoseconds())
		if res.Res < 0 {
			if c.metrics != nil {
				c.metrics.RecordWrite(0, latency, false)
			}
			c.logf("write on fd %s failed: errno %d", fid, -res.Res)
			st.Complete(data, false, uint32(-res.Res))
			return
		}
		n := uint32(res.Res)
		short := int(n) < len(buf)
		if c.metrics != nil {
			c.metrics.RecordWrite(uint64(n), latency, true)
		}
		st.Complete(data, short, 0)
	})

	if err := c.ring.PrepareWrite(e.osFD, buf, actualOffset, ud); err != nil {
		c.abortCompleter(ud)
		st.Complete(data, false, uint32(unix.EIO))
	}
	return ch
}
