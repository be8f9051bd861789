package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

func main() {
	issueToken := flag.String("issue-token", "", "print a bearer token for the given subject and exit")
	flag.Parse()

	// Initialize composition root with all dependencies
	root, err := NewCompositionRoot()
	if err != nil {
		fmt.Printf("Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	// Ensure cleanup on exit
	defer func() {
		if err := root.Cleanup(); err != nil {
			root.Logger.Error("Failed to cleanup resources", zap.Error(err))
		}
	}()

	if *issueToken != "" {
		if err := printToken(root, *issueToken); err != nil {
			root.Logger.Error("Failed to issue token", zap.Error(err))
		}
		return
	}

	root.StartSchedulers()

	go func() {
		if err := root.HTTPServer.Start(); err != nil {
			root.Logger.Error("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	root.Logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), root.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := root.HTTPServer.Stop(ctx); err != nil {
		root.Logger.Error("HTTP server forced to shutdown", zap.Error(err))
	}

	root.Logger.Info("Server exited")
}

func printToken(root *CompositionRoot, subject string) error {
	if root.Issuer == nil {
		return fmt.Errorf("auth secret is not configured")
	}
	token, expiresAt, err := root.Issuer.Issue(subject)
	if err != nil {
		return err
	}
	fmt.Println(token)
	root.Logger.Info("Issued token", zap.String("subject", subject), zap.Time("expires_at", expiresAt))
	return nil
}
