package domain

import "time"

type Task struct {
	TaskID      string     `json:"id" dynamodbav:"task_id"`
	OwnerID     string     `json:"owner_id" dynamodbav:"owner_id"`
	Title       string     `json:"title" dynamodbav:"title"`
	Description string     `json:"description" dynamodbav:"description"`
	Deadline    *time.Time `json:"deadline" dynamodbav:"deadline,omitempty"`
	Completed   bool       `json:"completed" dynamodbav:"completed"`
	CreatedAt   time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt   time.Time  `json:"updated" dynamodbav:"updated_at"`
}

type CreateTaskRequest struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description" validate:"max=2000"`
	Deadline    *time.Time `json:"deadline"`
}

type UpdateTaskRequest struct {
	Title       *string    `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	Deadline    *time.Time `json:"deadline"`
	Completed   *bool      `json:"completed"`
}
