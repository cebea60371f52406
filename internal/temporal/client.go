package temporal

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/testforge/pomsuite/internal/config"
	"github.com/testforge/pomsuite/internal/observability"
	"github.com/testforge/pomsuite/internal/workflows"
)

// Client wraps the Temporal SDK client with additional functionality
type Client struct {
	client.Client
	logger    *zap.Logger
	metrics   *observability.Metrics
	namespace string
	taskQueue string
}

// NewClient creates a new Temporal client
func NewClient(cfg config.TemporalConfig, logger *zap.Logger, metrics *observability.Metrics) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	options := client.Options{
		HostPort:  cfg.Address(),
		Namespace: cfg.Namespace,
		Logger:    NewZapAdapter(logger),
	}

	c, err := client.Dial(options)
	if err != nil {
		return nil, fmt.Errorf("failed to create Temporal client: %w", err)
	}

	return Wrap(c, cfg, logger, metrics), nil
}

// Wrap adds suite helpers to an existing SDK client
func Wrap(c client.Client, cfg config.TemporalConfig, logger *zap.Logger, metrics *observability.Metrics) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		Client:    c,
		logger:    logger,
		metrics:   metrics,
		namespace: cfg.Namespace,
		taskQueue: cfg.TaskQueue,
	}
}

// TaskQueue returns the configured task queue name
func (c *Client) TaskQueue() string {
	return c.taskQueue
}

// Namespace returns the configured namespace
func (c *Client) Namespace() string {
	return c.namespace
}

// StartWorkflow starts a workflow with standard options
func (c *Client) StartWorkflow(ctx context.Context, workflowID string, workflow interface{}, input interface{}) (client.WorkflowRun, error) {
	options := client.StartWorkflowOptions{
		ID:        workflowID,
		TaskQueue: c.taskQueue,
	}

	return c.ExecuteWorkflow(ctx, options, workflow, input)
}

// RunSuite starts SuiteWorkflow and blocks until it completes
func (c *Client) RunSuite(ctx context.Context, input workflows.SuiteInput) (*workflows.SuiteOutput, error) {
	workflowID := "suite-" + input.RunID
	start := time.Now()

	run, err := c.StartWorkflow(ctx, workflowID, workflows.SuiteWorkflowName, input)
	if err != nil {
		return nil, fmt.Errorf("starting suite workflow: %w", err)
	}
	c.metrics.RecordWorkflowStart(workflows.SuiteWorkflowName)
	c.logger.Info("Suite workflow started",
		zap.String("workflow_id", run.GetID()),
		zap.String("run_id", run.GetRunID()),
		zap.String("task_queue", c.taskQueue),
	)

	var out workflows.SuiteOutput
	if err := run.Get(ctx, &out); err != nil {
		c.metrics.RecordWorkflowComplete(workflows.SuiteWorkflowName, "error", time.Since(start))
		return nil, fmt.Errorf("waiting for suite workflow: %w", err)
	}

	c.metrics.RecordWorkflowComplete(workflows.SuiteWorkflowName, out.Status, time.Since(start))
	return &out, nil
}

// ZapAdapter adapts zap.Logger to Temporal's log interface
type ZapAdapter struct {
	logger *zap.Logger
}

// NewZapAdapter creates a new Temporal logger adapter
func NewZapAdapter(logger *zap.Logger) *ZapAdapter {
	return &ZapAdapter{logger: logger.Named("temporal")}
}

func (z *ZapAdapter) Debug(msg string, keyvals ...interface{}) {
	z.logger.Debug(msg, toZapFields(keyvals)...)
}

func (z *ZapAdapter) Info(msg string, keyvals ...interface{}) {
	z.logger.Info(msg, toZapFields(keyvals)...)
}

func (z *ZapAdapter) Warn(msg string, keyvals ...interface{}) {
	z.logger.Warn(msg, toZapFields(keyvals)...)
}

func (z *ZapAdapter) Error(msg string, keyvals ...interface{}) {
	z.logger.Error(msg, toZapFields(keyvals)...)
}

func toZapFields(keyvals []interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keyvals)/2)
	for i := 0; i < len(keyvals)-1; i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, keyvals[i+1]))
	}
	return fields
}
