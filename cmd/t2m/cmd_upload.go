// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"

	"github.com/spf13/cobra"

	"github.com/jangel97/text-to-mongo/cmd/t2m/gcs"
	"github.com/jangel97/text-to-mongo/pkg/ux"
)

// newGCSClient validates the cloud config and connects.
func newGCSClient(ctx context.Context) (*gcs.Client, error) {
	c := config.Cloud
	if c.ProjectID == "" || c.Bucket == "" || c.SAKeyPath == "" {
		return nil, fmt.Errorf("cloud config incomplete: project_id, bucket, and sa_key_path are required in t2m.yaml")
	}
	return gcs.NewClient(ctx, c.ProjectID, c.Bucket, expandHome(c.SAKeyPath))
}

func runUploadDataset(_ *cobra.Command, args []string) {
	localDir := args[0]
	ctx := context.Background()

	client, err := newGCSClient(ctx)
	if err != nil {
		slog.Error("Failed to create GCS client", "error", err)
		return
	}
	defer client.Close()

	prefix := path.Join(config.Cloud.PathPrefix, "datasets")
	var count int
	err = ux.WithSpinner(fmt.Sprintf("Uploading %s to gs://%s/%s", localDir, client.BucketName, prefix), func() error {
		var uploadErr error
		count, uploadErr = client.UploadDir(ctx, localDir, prefix)
		return uploadErr
	})
	if err != nil {
		slog.Error("Dataset upload failed", "error", err)
		return
	}
	ux.Success(fmt.Sprintf("Uploaded %d files", count))
}

func runUploadReport(_ *cobra.Command, args []string) {
	runID := args[0]
	ctx := context.Background()

	runStore, err := openStore()
	if err != nil {
		slog.Error("Failed to open run store", "error", err)
		return
	}
	defer runStore.Close()

	report, err := runStore.Get(ctx, runID)
	if err != nil {
		slog.Error("Failed to load run", "run_id", runID, "error", err)
		return
	}

	client, err := newGCSClient(ctx)
	if err != nil {
		slog.Error("Failed to create GCS client", "error", err)
		return
	}
	defer client.Close()

	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		slog.Error("Failed to marshal report", "error", err)
		return
	}

	gcsPath := path.Join(config.Cloud.PathPrefix, "reports", runID+".json")
	err = ux.WithSpinner(fmt.Sprintf("Uploading report to gs://%s/%s", client.BucketName, gcsPath), func() error {
		return client.Upload(ctx, bytes.NewReader(payload), gcsPath, "application/json")
	})
	if err != nil {
		slog.Error("Report upload failed", "error", err)
		return
	}
	ux.Success(fmt.Sprintf("Uploaded report for run %s", runID))
}
