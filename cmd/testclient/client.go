package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go-taskbus/model"
	"go-taskbus/producer"

	"github.com/chzyer/readline"
)

const menuPrompt = "Enter your choice (1-4): "

// lineReader is the part of *readline.Instance the menu uses.
type lineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
}

type publisher interface {
	SendOne(ctx context.Context, msg *model.TaskMessage) error
	SendBatch(ctx context.Context, msgs []*model.TaskMessage) error
}

type client struct {
	in      lineReader
	out     io.Writer
	pub     publisher
	samples *producer.SampleFactory
	now     func() time.Time
}

// run shows the menu until the user exits or input ends. Publish failures are
// reported and the menu is shown again.
func (c *client) run(ctx context.Context) error {
	for {
		fmt.Fprintln(c.out)
		fmt.Fprintln(c.out, "Choose an option:")
		fmt.Fprintln(c.out, "1. Send a single test message")
		fmt.Fprintln(c.out, "2. Send multiple test messages")
		fmt.Fprintln(c.out, "3. Send custom message")
		fmt.Fprintln(c.out, "4. Exit")

		choice, err := c.ask(menuPrompt)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, readline.ErrInterrupt) {
				fmt.Fprintln(c.out, "Goodbye!")
				return nil
			}
			return err
		}

		switch choice {
		case "1":
			err = c.sendSingle(ctx)
		case "2":
			err = c.sendMultiple(ctx)
		case "3":
			err = c.sendCustom(ctx)
		case "4":
			fmt.Fprintln(c.out, "Goodbye!")
			return nil
		default:
			fmt.Fprintln(c.out, "Invalid choice. Please try again.")
			continue
		}

		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, readline.ErrInterrupt) {
				fmt.Fprintln(c.out, "Goodbye!")
				return nil
			}
			c.reportError(err)
		}
	}
}

func (c *client) ask(prompt string) (string, error) {
	c.in.SetPrompt(prompt)
	line, err := c.in.Readline()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (c *client) sendSingle(ctx context.Context) error {
	msg, err := c.samples.Create(c.samples.RandomType())
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "Sending message with Task ID: %s\n", msg.TaskID)
	fmt.Fprintf(c.out, "   Task Type: %s\n", msg.TaskType)
	fmt.Fprintf(c.out, "   Task Name: %s\n", msg.TaskName)

	if err := c.pub.SendOne(ctx, msg); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Message sent successfully!")
	return nil
}

func (c *client) sendMultiple(ctx context.Context) error {
	raw, err := c.ask("Enter number of messages to send (1-10): ")
	if err != nil {
		return err
	}
	count, err := strconv.Atoi(raw)
	if err != nil || count < 1 || count > 10 {
		fmt.Fprintln(c.out, "Invalid number. Please enter a number between 1 and 10.")
		return nil
	}

	msgs, err := c.samples.CreateBatch(count)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "Sending %d messages...\n", count)
	if err := c.pub.SendBatch(ctx, msgs); err != nil {
		return err
	}

	fmt.Fprintln(c.out, "All messages sent successfully!")
	fmt.Fprintln(c.out, "Messages sent:")
	for _, msg := range msgs {
		fmt.Fprintf(c.out, "   - %s: %s (%s)\n", msg.TaskID, msg.TaskType, msg.TaskName)
	}
	return nil
}

func (c *client) sendCustom(ctx context.Context) error {
	fmt.Fprintln(c.out, "Create custom message:")

	name, err := c.ask("Task Name: ")
	if err != nil {
		return err
	}

	fmt.Fprintln(c.out, "Available task types:")
	for i, t := range model.TaskTypes {
		fmt.Fprintf(c.out, "   %d. %s\n", i+1, t)
	}
	typeInput, err := c.ask(fmt.Sprintf("Select task type (1-%d) or enter custom: ", len(model.TaskTypes)))
	if err != nil {
		return err
	}
	taskType := typeInput
	if idx, err := strconv.Atoi(typeInput); err == nil && idx >= 1 && idx <= len(model.TaskTypes) {
		taskType = model.TaskTypes[idx-1]
	}

	rawPriority, err := c.ask("Priority (1-5, default 3): ")
	if err != nil {
		return err
	}
	priority, _ := strconv.Atoi(rawPriority)

	msg := producer.NewCustom(name, taskType, priority, c.now())

	fmt.Fprintln(c.out, "Sending custom message:")
	fmt.Fprintf(c.out, "   Task ID: %s\n", msg.TaskID)
	fmt.Fprintf(c.out, "   Task Type: %s\n", msg.TaskType)
	fmt.Fprintf(c.out, "   Task Name: %s\n", msg.TaskName)
	fmt.Fprintf(c.out, "   Priority: %d\n", msg.Priority)

	if err := c.pub.SendOne(ctx, msg); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Custom message sent successfully!")
	return nil
}

func (c *client) reportError(err error) {
	fmt.Fprintf(c.out, "Error: %v\n", err)

	var pe *producer.PublishError
	if errors.As(err, &pe) {
		if hint := pe.Hint(); hint != "" {
			fmt.Fprintf(c.out, "Hint: %s\n", hint)
		}
	}

	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, "Troubleshooting tips:")
	fmt.Fprintln(c.out, "   - Ensure QUEUE_CONNECTION_STRING points at a reachable Redis")
	fmt.Fprintln(c.out, "   - Verify QUEUE_NAME matches the queue the consumer host reads")
	fmt.Fprintln(c.out, "   - Check your network connectivity to the broker")
}
