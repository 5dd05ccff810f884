// Command hello is the Lambda entrypoint for the greeting function.
// Build it as "bootstrap" for the provided.al2023 runtime.
package main

import (
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/raywall/terraform-provider-lambdaproxy/function/hello"
)

func main() {
	level := slog.LevelInfo
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		_ = level.UnmarshalText([]byte(v))
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	lambda.Start(hello.New(logger).Handle)
}
