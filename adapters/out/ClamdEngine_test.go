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
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClamd answers every INSTREAM session with the reply chosen for the
// received content.
func fakeClamd(t *testing.T, reply func(content []byte) string) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { listener.Close() })

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}

			go func(conn net.Conn) {
				defer conn.Close()

				command := make([]byte, len("zINSTREAM\x00"))
				if _, err := io.ReadFull(conn, command); err != nil {
					return
				}

				var content bytes.Buffer
				size := make([]byte, 4)
				for {
					if _, err := io.ReadFull(conn, size); err != nil {
						return
					}
					n := binary.BigEndian.Uint32(size)
					if n == 0 {
						break
					}
					if _, err := io.CopyN(&content, conn, int64(n)); err != nil {
						return
					}
				}

				_, _ = conn.Write([]byte(reply(content.Bytes()) + "\x00"))
			}(conn)
		}
	}()

	return "tcp://" + listener.Addr().String()
}

func eicarAware(content []byte) string {
	if bytes.Contains(content, []byte("EICAR")) {
		return "stream: Eicar-Test-Signature FOUND"
	}

	return "stream: OK"
}

func TestClamdCleanFile(t *testing.T) {
	engine := NewClamdEngine(fakeClamd(t, eicarAware))

	report, err := engine.Scan(context.Background(), "clean.txt", strings.NewReader("hello"))

	require.NoError(t, err)
	assert.False(t, report.Infected)
	assert.Empty(t, report.Threats)
}

func TestClamdInfectedFileAcrossChunks(t *testing.T) {
	engine := NewClamdEngine(fakeClamd(t, eicarAware))
	content := append(bytes.Repeat([]byte{'a'}, clamdChunkSize-2), []byte("EICAR")...)

	report, err := engine.Scan(context.Background(), "eicar.com", bytes.NewReader(content))

	require.NoError(t, err)
	assert.True(t, report.Infected)
	assert.Equal(t, []string{"Eicar-Test-Signature"}, report.Threats)
}

func TestClamdErrorReply(t *testing.T) {
	engine := NewClamdEngine(fakeClamd(t, func([]byte) string { return "INSTREAM size limit exceeded. ERROR" }))

	_, err := engine.Scan(context.Background(), "big.bin", strings.NewReader("data"))

	assert.ErrorContains(t, err, "size limit exceeded")
}

func TestClamdUnreachable(t *testing.T) {
	engine := NewClamdEngine("tcp://127.0.0.1:1")

	_, err := engine.Scan(context.Background(), "file", strings.NewReader("data"))

	assert.Error(t, err)
}

func TestNewClamdEngineParsesAddress(t *testing.T) {
	unix := NewClamdEngine("unix:///var/run/clamd.sock")
	assert.Equal(t, "unix", unix.network)
	assert.Equal(t, "/var/run/clamd.sock", unix.address)

	tcp := NewClamdEngine("clamd:3310")
	assert.Equal(t, "tcp", tcp.network)
	assert.Equal(t, "clamd:3310", tcp.address)
}
