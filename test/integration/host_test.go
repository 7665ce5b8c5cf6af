// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

//go:build integration

// Package integration provides end-to-end integration tests for LogLens.
package integration

import (
	"bufio"
	"context"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/loglens/loglens/internal/control"
	"github.com/loglens/loglens/internal/logfile"
	hostplugin "github.com/loglens/loglens/internal/plugin"
	"github.com/loglens/loglens/internal/plugin/capability"
	pluginpkg "github.com/loglens/loglens/pkg/plugin"
	"github.com/loglens/loglens/plugins/conntrack"
	"github.com/loglens/loglens/plugins/exporter"
	"github.com/loglens/loglens/plugins/nonverbose"
)

// writePlugin lays out one plugin directory with its manifest and optional
// extra files.
func writePlugin(dir, name, manifest string, files map[string]string) {
	pluginDir := filepath.Join(dir, name)
	Expect(os.MkdirAll(pluginDir, 0o755)).To(Succeed())
	Expect(os.WriteFile(filepath.Join(pluginDir, "plugin.yaml"), []byte(manifest), 0o644)).To(Succeed())
	for fname, content := range files {
		Expect(os.WriteFile(filepath.Join(pluginDir, fname), []byte(content), 0o644)).To(Succeed())
	}
}

var _ = Describe("Log inspection host", func() {
	var (
		ctx        context.Context
		cancel     context.CancelFunc
		tmpDir     string
		registry   *hostplugin.Registry
		manager    *hostplugin.Manager
		pipeline   *hostplugin.Pipeline
		dispatcher *hostplugin.Dispatcher
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), time.Minute)
		tmpDir = GinkgoT().TempDir()

		pluginsDir := filepath.Join(tmpDir, "plugins")
		writePlugin(pluginsDir, "nonverbose", `name: nonverbose
version: 1.0.0
capabilities:
  - decoder
config: keys.yaml
`, map[string]string{
			"keys.yaml": `messages:
  "42": "cold start (reason %s)"
  "7": "shutdown requested"
`,
		})
		writePlugin(pluginsDir, "exporter", `name: exporter
version: 1.0.0
capabilities:
  - viewer
  - command.*
`, nil)
		writePlugin(pluginsDir, "conntrack", `name: conntrack
version: 1.0.0
capabilities:
  - control
  - command.*
`, nil)

		registry = hostplugin.NewRegistry(capability.NewEnforcer())
		manager = hostplugin.NewManager(pluginsDir, registry)
		manager.RegisterFactory("nonverbose", func() pluginpkg.Plugin { return nonverbose.New() })
		manager.RegisterFactory("exporter", func() pluginpkg.Plugin { return exporter.New() })
		manager.RegisterFactory("conntrack", func() pluginpkg.Plugin { return conntrack.New() })
		Expect(manager.LoadAll(ctx)).To(Succeed())

		pipeline = hostplugin.NewPipeline(registry)
		pipeline.Activate()
		dispatcher = hostplugin.NewDispatcher(registry,
			hostplugin.WithPollInterval(time.Millisecond))
	})

	AfterEach(func() {
		pipeline.Close()
		cancel()
	})

	writeLog := func(lines ...string) string {
		path := filepath.Join(tmpDir, "session.log")
		Expect(os.WriteFile(path, []byte(strings.Join(lines, "")), 0o644)).To(Succeed())
		return path
	}

	It("activates every discovered plugin", func() {
		Expect(manager.Active()).To(Equal([]string{"conntrack", "exporter", "nonverbose"}))
	})

	It("decodes non-verbose records during the bulk pass and exports them", func() {
		path := writeLog(
			"2026-08-23T10:00:00Z\tecu-1\tengine started\n",
			"2026-08-23T10:00:01Z\tecu-1\tNV|42|thermal\n",
		)
		file, err := logfile.Open(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(pipeline.OpenLog(ctx, file)).To(Succeed())

		out := filepath.Join(tmpDir, "export.txt")
		value, err := dispatcher.Execute(ctx, "exporter", "export", []string{out})
		Expect(err).NotTo(HaveOccurred())
		Expect(value).To(HavePrefix("wrote 2 messages"))

		data, err := os.ReadFile(out)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal(
			"0\tecu-1\tengine started\n" +
				"1\tecu-1\tcold start (reason thermal)\n"))
	})

	It("streams appended records through the same decoder chain", func() {
		path := writeLog("2026-08-23T10:00:00Z\tecu-1\tengine started\n")
		file, err := logfile.Open(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(pipeline.OpenLog(ctx, file)).To(Succeed())

		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
		Expect(err).NotTo(HaveOccurred())
		_, err = f.WriteString("2026-08-23T10:00:05Z\tecu-2\tNV|7\n")
		Expect(err).NotTo(HaveOccurred())
		Expect(f.Close()).To(Succeed())

		added, err := file.Poll()
		Expect(err).NotTo(HaveOccurred())
		Expect(added).To(HaveLen(1))
		Expect(pipeline.Append(ctx, added)).To(Succeed())

		out := filepath.Join(tmpDir, "export.txt")
		value, err := dispatcher.Execute(ctx, "exporter", "export", []string{out})
		Expect(err).NotTo(HaveOccurred())
		Expect(value).To(HavePrefix("wrote 2 messages"))

		data, err := os.ReadFile(out)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring("1\tecu-2\tshutdown requested\n"))
	})

	It("reports selections to viewer surfaces", func() {
		path := writeLog(
			"2026-08-23T10:00:00Z\tecu-1\tengine started\n",
			"2026-08-23T10:00:01Z\tecu-1\tNV|42|thermal\n",
		)
		file, err := logfile.Open(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(pipeline.OpenLog(ctx, file)).To(Succeed())
		Expect(pipeline.Select(1)).To(Succeed())

		surfaces := pipeline.Surfaces()
		Expect(surfaces).To(HaveLen(1))
		Expect(surfaces[0].Plugin).To(Equal("exporter"))

		var b strings.Builder
		Expect(surfaces[0].Surface.Render(&b)).To(Succeed())
		Expect(b.String()).To(ContainSubstring("collected 2 messages"))
		Expect(b.String()).To(ContainSubstring("selected index 1"))
	})

	It("refuses commands the manifest does not grant", func() {
		_, err := dispatcher.Execute(ctx, "nonverbose", "export", nil)
		Expect(err).To(HaveOccurred())
	})

	Describe("control topology", func() {
		var (
			listener net.Listener
			received chan string
			topology *control.Manager
		)

		BeforeEach(func() {
			var err error
			listener, err = net.Listen("tcp", "127.0.0.1:0")
			Expect(err).NotTo(HaveOccurred())

			received = make(chan string, 1)
			go func() {
				conn, err := listener.Accept()
				if err != nil {
					return
				}
				defer conn.Close()
				line, err := bufio.NewReader(conn).ReadString('\n')
				if err == nil {
					received <- strings.TrimSuffix(line, "\n")
				}
			}()

			connector := control.NewConnector()
			connector.SetEndpoints([]string{listener.Addr().String()})
			topology = control.NewManager(registry, connector, slog.Default())
			topology.SetTopology([]string{listener.Addr().String()})
		})

		AfterEach(func() {
			listener.Close()
		})

		It("lets a controller ping an endpoint through the host channel", func() {
			value, err := dispatcher.Execute(ctx, "conntrack", "ping", []string{"0"})
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal("ping sent to endpoint 0"))
			Eventually(received).Should(Receive(Equal("ping")))
		})

		It("reflects state transitions in the status command", func() {
			Expect(topology.SetState(0, pluginpkg.ConnConnected)).To(Succeed())

			value, err := dispatcher.Execute(ctx, "conntrack", "status", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal("0 " + listener.Addr().String() + " connected"))
		})
	})
})
