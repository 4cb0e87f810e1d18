package app

import (
	"github.com/charlesng35/socialink/internal/generator"
	"github.com/charlesng35/socialink/internal/storage"
	"github.com/charlesng35/socialink/internal/tasks"
)

// ClientConfig converts GeneratorConfig into image generator client parameters.
func (c GeneratorConfig) ClientConfig() generator.Config {
	return generator.Config{
		Endpoint: c.Endpoint,
		APIKey:   c.APIKey,
		Timeout:  positiveOr(c.Timeout, generator.DefaultTimeout),
	}
}

// UploaderConfig converts the S3 section into uploader parameters.
func (c StorageConfig) UploaderConfig() storage.S3Config {
	return storage.S3Config{
		Endpoint:       c.S3.Endpoint,
		Region:         c.S3.Region,
		Bucket:         c.S3.Bucket,
		AccessKey:      c.S3.AccessKey,
		SecretKey:      c.S3.SecretKey,
		PublicURL:      c.S3.PublicURL,
		ForcePathStyle: c.S3.ForcePathStyle,
	}
}

// RunnerConfig converts TasksConfig into task runner parameters.
func (c TasksConfig) RunnerConfig() tasks.Config {
	workers := c.Workers
	if workers <= 0 {
		workers = tasks.DefaultWorkers
	}
	queue := c.QueueSize
	if queue <= 0 {
		queue = tasks.DefaultQueueSize
	}
	return tasks.Config{Workers: workers, QueueSize: queue}
}
