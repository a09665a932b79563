/*
 *    Copyright 2023 iFood
 *
 *    Licensed under the Apache License, Version 2.0 (the "License");
 *    you may not use this file except in compliance with the License.
 *    You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 *    Unless required by applicable law or agreed to in writing, software
 *    distributed under the License is distributed on an "AS IS" BASIS,
 *    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *    See the License for the specific language governing permissions and
 *    limitations under the License.
 */

package out

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"strings"
	"tier-scanner/domain/ports/out"
	"time"
)

const (
	clamdChunkSize   = 64 * 1024
	clamdDialTimeout = 5 * time.Second
	clamdFoundSuffix = " FOUND"
	clamdErrorSuffix = " ERROR"
)

// ClamdEngine streams files to a clamd daemon with the INSTREAM command.
type ClamdEngine struct {
	network string
	address string
}

// NewClamdEngine accepts tcp://host:port or unix:///path/clamd.sock.
func NewClamdEngine(address string) *ClamdEngine {
	network := "tcp"
	switch {
	case strings.HasPrefix(address, "unix://"):
		network, address = "unix", strings.TrimPrefix(address, "unix://")
	case strings.HasPrefix(address, "tcp://"):
		address = strings.TrimPrefix(address, "tcp://")
	}

	return &ClamdEngine{network: network, address: address}
}

func (c *ClamdEngine) Scan(ctx context.Context, path string, content io.Reader) (out.AntivirusReport, error) {
	dialer := net.Dialer{Timeout: clamdDialTimeout}
	conn, err := dialer.DialContext(ctx, c.network, c.address)
	if err != nil {
		return out.AntivirusReport{}, fmt.Errorf("failed to connect to clamd. err: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if _, err := conn.Write([]byte("zINSTREAM\x00")); err != nil {
		return out.AntivirusReport{}, fmt.Errorf("failed to start clamd stream. err: %w", err)
	}

	if err := c.stream(conn, content); err != nil {
		return out.AntivirusReport{}, fmt.Errorf("failed to stream file to clamd. path: %s, err: %w", path, err)
	}

	reply, err := bufio.NewReader(conn).ReadString(0)
	if err != nil && reply == "" {
		return out.AntivirusReport{}, fmt.Errorf("failed to read clamd reply. err: %w", err)
	}

	return parseClamdReply(reply)
}

func (c *ClamdEngine) stream(conn net.Conn, content io.Reader) error {
	buffer := make([]byte, clamdChunkSize)
	size := make([]byte, 4)

	for {
		n, err := content.Read(buffer)
		if n > 0 {
			binary.BigEndian.PutUint32(size, uint32(n))
			if _, werr := conn.Write(size); werr != nil {
				return werr
			}
			if _, werr := conn.Write(buffer[:n]); werr != nil {
				return werr
			}
		}

		if err == io.EOF {
			break
		}

		if err != nil {
			return err
		}
	}

	binary.BigEndian.PutUint32(size, 0)
	_, err := conn.Write(size)

	return err
}

// parseClamdReply reads "stream: OK", "stream: <name> FOUND" or "<reason> ERROR".
func parseClamdReply(reply string) (out.AntivirusReport, error) {
	reply = strings.TrimRight(reply, "\x00\n")
	verdict := reply
	if i := strings.Index(reply, ": "); i >= 0 {
		verdict = reply[i+2:]
	}

	switch {
	case verdict == "OK":
		return out.AntivirusReport{Infected: false, Threats: []string{}}, nil
	case strings.HasSuffix(verdict, clamdFoundSuffix):
		return out.AntivirusReport{Infected: true, Threats: []string{strings.TrimSuffix(verdict, clamdFoundSuffix)}}, nil
	case strings.HasSuffix(verdict, clamdErrorSuffix):
		return out.AntivirusReport{}, fmt.Errorf("clamd error: %s", strings.TrimSuffix(verdict, clamdErrorSuffix))
	default:
		return out.AntivirusReport{}, fmt.Errorf("unexpected clamd reply %q", reply)
	}
}
