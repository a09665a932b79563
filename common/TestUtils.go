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

package common

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path"
	"runtime"
	"testing"
	scannerhttp "tier-scanner/http"
	"tier-scanner/logging"

	"github.com/gofiber/fiber/v2"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
)

const EnforceRequestToDisk = 10 * 1024 * 1024

// ChangePathForTesting moves the working directory to the module root, so
// relative paths like resources/ resolve the same way in every package.
func ChangePathForTesting(t *testing.T) {
	t.Helper()

	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		panic("could not get caller")
	}

	dir := path.Join(path.Dir(filename), "..")
	err := os.Chdir(dir)

	if err != nil {
		panic(err)
	}
}

func GetObjectFromJSON[T any](t *testing.T, data []byte) T {
	t.Helper()

	var objects T
	err := json.Unmarshal(data, &objects)

	if err != nil {
		panic(err)
	}

	return objects
}

func RedirectContainerOutput(ctx context.Context, pool *dockertest.Pool, containerID string) {
	err := pool.Client.Logs(docker.LogsOptions{
		Context:      ctx,
		Container:    containerID,
		OutputStream: os.Stdout,
		Follow:       true,
		Stdout:       true,
		Stderr:       true,
		RawTerminal:  true,
		Timestamps:   true,
	})
	if err != nil {
		log.Println(err)
	}
}

func CreateFiberAppForTest(handlers []scannerhttp.Handler) *fiber.App {
	fiberConfig := scannerhttp.FiberConfig{
		MaxRequestSize: EnforceRequestToDisk,
		Profiler:       false,
		RequestLogger: func(c *fiber.Ctx) error {
			return c.Next()
		},
		Readiness: func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusOK)
		},
		Liveness: func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusOK)
		},
		Handlers: handlers,
	}
	app, err := scannerhttp.CreateFiberApp(fiberConfig, logging.NewDiscardLog())

	if err != nil {
		panic(err)
	}

	return app
}
