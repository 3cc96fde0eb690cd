package rtsp

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Direction selects which half of the protocol a Decoder/Encoder
// speaks: AsServer decodes Requests and encodes Responses; AsClient
// mirrors that. Only the start-line parse/print differs (§4.1).
type Direction int

const (
	AsServer Direction = iota
	AsClient
)

// Decoder is a stateful decoder over a byte stream, yielding one
// Request/Response or Interleaved frame per Next call. It never
// reuses parser state across frames: each call starts a fresh
// StartLine state (§4.1 "Parser disposition").
type Decoder struct {
	r         *bufio.Reader
	dir       Direction
	maxBody   int
}

// NewDecoder wraps r. maxBody bounds request/response bodies; 0 means
// DefaultMaxBodyBytes.
func NewDecoder(r io.Reader, dir Direction, maxBody int) *Decoder {
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	return &Decoder{r: bufio.NewReader(r), dir: dir, maxBody: maxBody}
}

// Decoded is the union yielded by Decoder.Next.
type Decoded struct {
	Request     *Request
	Response    *Response
	Interleaved *Interleaved
}

// Next blocks until a complete frame is available, an interleaved
// frame is decoded, or the underlying read fails. Partial data left on
// the stream is preserved across calls by the underlying bufio.Reader
// (§8 invariant 1).
func (d *Decoder) Next() (Decoded, error) {
	first, err := d.r.Peek(1)
	if err != nil {
		return Decoded{}, newError(KindIo, "peek", err)
	}
	if first[0] == interleavedMagic {
		frame, err := d.readInterleaved()
		if err != nil {
			return Decoded{}, err
		}
		return Decoded{Interleaved: frame}, nil
	}

	startLine, err := d.readLine()
	if err != nil {
		return Decoded{}, newError(KindIo, "read start line", err)
	}

	switch d.dir {
	case AsServer:
		req, err := d.parseRequestStartLine(startLine)
		if err != nil {
			return Decoded{}, err
		}
		if err := d.readHeadersAndBody(req.Header, &req.Body); err != nil {
			return Decoded{}, err
		}
		return Decoded{Request: req}, nil
	default:
		resp, err := d.parseResponseStartLine(startLine)
		if err != nil {
			return Decoded{}, err
		}
		if err := d.readHeadersAndBody(resp.Header, &resp.Body); err != nil {
			return Decoded{}, err
		}
		return Decoded{Response: resp}, nil
	}
}

func (d *Decoder) readInterleaved() (*Interleaved, error) {
	header := make([]byte, 4)
	if _, err := io.ReadFull(d.r, header); err != nil {
		return nil, newError(KindIo, "read interleaved header", err)
	}
	channel := header[1]
	length := int(header[2])<<8 | int(header[3])
	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(d.r, payload); err != nil {
			return nil, newError(KindIo, "read interleaved payload", err)
		}
	}
	return &Interleaved{Channel: channel, Payload: payload}, nil
}

// readLine reads one line, accepting LF-only endings leniently (§6).
func (d *Decoder) readLine() (string, error) {
	line, err := d.r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (d *Decoder) parseRequestStartLine(line string) (*Request, error) {
	parts := strings.Fields(line)
	if len(parts) != 3 {
		return nil, errMalformedStartLine(line)
	}
	return &Request{
		Method:  parts[0],
		URI:     parts[1],
		Version: parts[2],
		Header:  NewHeader(),
	}, nil
}

func (d *Decoder) parseResponseStartLine(line string) (*Response, error) {
	parts := strings.Fields(line)
	if len(parts) < 2 {
		return nil, errMalformedStartLine(line)
	}
	code, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, errMalformedStartLine(line)
	}
	text := ""
	if len(parts) >= 3 {
		text = strings.Join(parts[2:], " ")
	}
	return &Response{
		Version:    parts[0],
		StatusCode: code,
		StatusText: text,
		Header:     NewHeader(),
	}, nil
}

func (d *Decoder) readHeadersAndBody(h *Header, body *[]byte) error {
	for {
		line, err := d.readLine()
		if err != nil {
			return newError(KindIo, "read header", err)
		}
		if line == "" {
			break
		}
		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			return errMalformedHeader(line)
		}
		name := strings.TrimSpace(line[:colon])
		value := strings.TrimSpace(line[colon+1:])
		if name == "" {
			return errMalformedHeader(line)
		}
		h.Add(name, value)
	}

	contentLength := 0
	if cl := h.Get(HeaderContentLength); cl != "" {
		n, err := strconv.Atoi(strings.TrimSpace(cl))
		if err != nil || n < 0 {
			return errInvalidContentLength(cl)
		}
		contentLength = n
	}
	if contentLength > d.maxBody {
		return errBodyTooLarge(d.maxBody)
	}
	if contentLength > 0 {
		buf := make([]byte, contentLength)
		if _, err := io.ReadFull(d.r, buf); err != nil {
			return newError(KindIo, "read body", err)
		}
		*body = buf
	}
	return nil
}

// Encode serializes item bit-exactly onto w. Content-Length MUST be
// present whenever a body is non-empty (§4.1); this is asserted here
// rather than silently fixed up, since a missing length for a non-empty
// body means a caller forgot to set it.
func Encode(w io.Writer, item OutboundItem) error {
	if item.Interleaved != nil {
		_, err := w.Write(encodeInterleaved(*item.Interleaved))
		if err != nil {
			return newError(KindIo, "write interleaved", err)
		}
		return nil
	}
	resp := item.Response
	if len(resp.Body) > 0 && resp.Header.Get(HeaderContentLength) == "" {
		return newError(KindProtocol, fmt.Sprintf("response with %d byte body missing Content-Length", len(resp.Body)), nil)
	}
	if _, err := w.Write(resp.Bytes()); err != nil {
		return newError(KindIo, "write response", err)
	}
	return nil
}

// EncodeRequest serializes a request (client direction); used by tests
// and any future client-side tooling sharing this codec.
func EncodeRequest(w io.Writer, req *Request) error {
	if len(req.Body) > 0 && req.Header.Get(HeaderContentLength) == "" {
		return newError(KindProtocol, "request body missing Content-Length", nil)
	}
	if _, err := w.Write(req.Bytes()); err != nil {
		return newError(KindIo, "write request", err)
	}
	return nil
}
