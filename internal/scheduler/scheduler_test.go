package scheduler

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

func TestNotificationOutboxDueTask_Roundtrip(t *testing.T) {
	payload := NotificationOutboxDuePayload{
		OutboxID:       uuid.New().String(),
		OrganizationID: uuid.New().String(),
	}

	task, err := NewNotificationOutboxDueTask(payload)
	if err != nil {
		t.Fatalf("NewNotificationOutboxDueTask: %v", err)
	}
	if task.Type() != TaskNotificationOutboxDue {
		t.Fatalf("task type = %q, want %q", task.Type(), TaskNotificationOutboxDue)
	}

	got, err := ParseNotificationOutboxDuePayload(task)
	if err != nil {
		t.Fatalf("ParseNotificationOutboxDuePayload: %v", err)
	}
	if got != payload {
		t.Fatalf("payload = %+v, want %+v", got, payload)
	}
}

func TestParseNotificationOutboxDuePayload_Malformed(t *testing.T) {
	task := asynq.NewTask(TaskNotificationOutboxDue, []byte("not json"))
	if _, err := ParseNotificationOutboxDuePayload(task); err == nil {
		t.Fatalf("expected error for malformed payload")
	}
}

func TestRedisClientOpt(t *testing.T) {
	opt, err := redisClientOpt("redis://:secret@localhost:6380/2", false)
	if err != nil {
		t.Fatalf("redisClientOpt: %v", err)
	}
	if opt.Addr != "localhost:6380" {
		t.Fatalf("addr = %q", opt.Addr)
	}
	if opt.Password != "secret" {
		t.Fatalf("password = %q", opt.Password)
	}
	if opt.DB != 2 {
		t.Fatalf("db = %d", opt.DB)
	}
	if opt.TLSConfig != nil {
		t.Fatalf("unexpected TLS config for plain redis url")
	}

	insecure, err := redisClientOpt("redis://localhost:6379", true)
	if err != nil {
		t.Fatalf("redisClientOpt insecure: %v", err)
	}
	if insecure.TLSConfig == nil || !insecure.TLSConfig.InsecureSkipVerify {
		t.Fatalf("tlsInsecure not applied")
	}

	if _, err := redisClientOpt("://broken", false); err == nil {
		t.Fatalf("expected error for invalid url")
	}
}

func TestEnqueueOutboxDue_LandsInQueue(t *testing.T) {
	mr := miniredis.RunT(t)
	opt := asynq.RedisClientOpt{Addr: mr.Addr()}

	client := asynq.NewClient(opt)
	defer client.Close()

	payload := NotificationOutboxDuePayload{
		OutboxID:       uuid.New().String(),
		OrganizationID: uuid.New().String(),
	}
	task, err := NewNotificationOutboxDueTask(payload)
	if err != nil {
		t.Fatalf("NewNotificationOutboxDueTask: %v", err)
	}
	if _, err := client.Enqueue(task, asynq.Queue("default")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	insp := asynq.NewInspector(opt)
	defer insp.Close()

	pending, err := insp.ListPendingTasks("default")
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending tasks = %d, want 1", len(pending))
	}

	got, err := ParseNotificationOutboxDuePayload(asynq.NewTask(pending[0].Type, pending[0].Payload))
	if err != nil {
		t.Fatalf("parse queued payload: %v", err)
	}
	if got.OutboxID != payload.OutboxID {
		t.Fatalf("outboxId = %q, want %q", got.OutboxID, payload.OutboxID)
	}
}
