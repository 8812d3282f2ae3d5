package ipc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/bytedance/sonic"
	"golang.org/x/sys/unix"

	"github.com/GriffinCanCode/AgentOS/fileshuttle/internal/providers/filesystem"
)

// MaxFrameSize bounds a single message body
const MaxFrameSize = 16 << 20

const headerSize = 4

// Fault strings shared by server and client
const (
	FaultStopped   = "service stopped"
	FaultUnknownOp = "unknown op"
	FaultInternal  = "internal error"
)

var (
	ErrFrameTooLarge = errors.New("ipc: frame too large")
	ErrMissingHandle = errors.New("ipc: response lacks a file handle")
)

// Request is one shuttle call
type Request struct {
	ID          string `json:"id"`
	Op          string `json:"op"`
	Path        string `json:"path,omitempty"`
	Mode        string `json:"mode,omitempty"`
	MIMEType    string `json:"mime_type,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// Response answers one Request
type Response struct {
	ID      string                     `json:"id"`
	OK      bool                       `json:"ok"`
	Entries []filesystem.EntryMetadata `json:"entries,omitempty"`
	Entry   *filesystem.EntryMetadata  `json:"entry,omitempty"`
	DocID   string                     `json:"doc_id,omitempty"`
	Handle  bool                       `json:"handle,omitempty"`
	More    bool                       `json:"more,omitempty"`
	Fault   string                     `json:"fault,omitempty"`
}

// listBatch caps the entries per frame. Longer listings are split across
// frames flagged More; the last frame carries the rest and any handle.
var listBatch = 1024

// sendResponse writes resp, splitting long listings across frames
func (c codec) sendResponse(resp Response, file *os.File) error {
	for len(resp.Entries) > listBatch {
		part := resp
		part.Entries = resp.Entries[:listBatch]
		part.More = true
		if err := c.send(part, nil); err != nil {
			return err
		}
		resp.Entries = resp.Entries[listBatch:]
	}
	return c.send(resp, file)
}

// recvResponse reads one response, joining a listing split across frames
func (c codec) recvResponse() (Response, *os.File, error) {
	var resp Response
	file, err := c.recv(&resp)
	for err == nil && resp.More {
		closeFile(file)
		var next Response
		file, err = c.recv(&next)
		next.Entries = append(resp.Entries, next.Entries...)
		resp = next
	}
	if err != nil {
		return Response{}, nil, err
	}
	return resp, file, nil
}

// codec reads and writes frames on a unix connection
type codec struct {
	conn *net.UnixConn
}

// send writes v as one frame. A non-nil file rides along as SCM_RIGHTS.
func (c codec) send(v any, file *os.File) error {
	body, err := sonic.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	if len(body) > MaxFrameSize {
		return ErrFrameTooLarge
	}

	buf := make([]byte, headerSize+len(body))
	binary.BigEndian.PutUint32(buf, uint32(len(body)))
	copy(buf[headerSize:], body)

	var oob []byte
	if file != nil {
		oob = unix.UnixRights(int(file.Fd()))
	}

	n, oobn, err := c.conn.WriteMsgUnix(buf, oob, nil)
	if err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	if oobn != len(oob) {
		return fmt.Errorf("write frame: short control message (%d of %d)", oobn, len(oob))
	}
	if n < len(buf) {
		if _, err := c.conn.Write(buf[n:]); err != nil {
			return fmt.Errorf("write frame: %w", err)
		}
	}
	return nil
}

// recv reads one frame into v and returns any descriptor that came with it.
// The caller owns the returned file.
func (c codec) recv(v any) (*os.File, error) {
	header := make([]byte, headerSize)
	oob := make([]byte, unix.CmsgSpace(4*4))

	n, oobn, _, _, err := c.conn.ReadMsgUnix(header, oob)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, io.EOF
	}

	file, err := parseRights(oob[:oobn])
	if err != nil {
		return nil, err
	}

	if n < headerSize {
		if _, err := io.ReadFull(c.conn, header[n:]); err != nil {
			closeFile(file)
			return nil, fmt.Errorf("read header: %w", err)
		}
	}

	size := binary.BigEndian.Uint32(header)
	if size > MaxFrameSize {
		closeFile(file)
		return nil, ErrFrameTooLarge
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(c.conn, body); err != nil {
		closeFile(file)
		return nil, fmt.Errorf("read body: %w", err)
	}
	if err := sonic.Unmarshal(body, v); err != nil {
		closeFile(file)
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return file, nil
}

// parseRights extracts the first passed descriptor and closes any extras
func parseRights(oob []byte) (*os.File, error) {
	if len(oob) == 0 {
		return nil, nil
	}

	msgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return nil, fmt.Errorf("parse control message: %w", err)
	}

	var fds []int
	for i := range msgs {
		rights, err := unix.ParseUnixRights(&msgs[i])
		if err != nil {
			continue
		}
		fds = append(fds, rights...)
	}
	if len(fds) == 0 {
		return nil, nil
	}
	for _, extra := range fds[1:] {
		_ = unix.Close(extra)
	}
	return os.NewFile(uintptr(fds[0]), "shuttle-handle"), nil
}

func closeFile(f *os.File) {
	if f != nil {
		_ = f.Close()
	}
}
