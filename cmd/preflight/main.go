// cmd/preflight/main.go
package main

import (
	"fmt"
	"os"
	"strings"
)

func main() {
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	renderURL := strings.TrimSpace(os.Getenv("RENDER_URL"))
	db := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	s3 := strings.TrimSpace(os.Getenv("S3_ENDPOINT"))
	slack := strings.TrimSpace(os.Getenv("SLACK_WEBHOOK"))
	kafka := strings.TrimSpace(os.Getenv("KAFKA_BROKERS"))
	addr := strings.TrimSpace(os.Getenv("ADDR"))

	if renderURL == "" {
		fail("RENDER_URL is empty (no capture backend, the visual cycle cannot run).")
	}
	ok("RENDER_URL=" + renderURL)

	if db == "" {
		warn("DATABASE_URL empty — monitor will use in-memory repositories; history is lost on restart.")
	} else {
		ok("DATABASE_URL present")
	}

	if s3 == "" {
		warn("S3_ENDPOINT empty — screenshots will be kept in process memory only.")
	} else {
		ok("S3_ENDPOINT=" + s3)
		for _, key := range []string{"S3_ACCESS_KEY", "S3_SECRET_KEY"} {
			if strings.TrimSpace(os.Getenv(key)) == "" {
				warn(key + " is empty; uploads will fail against most S3 backends.")
			}
		}
	}

	if slack == "" && kafka == "" {
		warn("SLACK_WEBHOOK and KAFKA_BROKERS both empty — alerts will be recorded but not delivered.")
	}
	if slack != "" {
		ok("SLACK_WEBHOOK present")
	}
	if kafka != "" {
		if strings.Contains(kafka, " ") {
			warn("KAFKA_BROKERS contains spaces; use comma-separated with no spaces, e.g. host1:9092,host2:9092")
		}
		ok("KAFKA_BROKERS=" + kafka)
	}

	if addr == "" {
		warn("ADDR is empty; the ops API defaults to 127.0.0.1:8080.")
	} else {
		ok("ADDR=" + addr)
	}

	ok("preflight passed")
}
