package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"taskpad/internal/guard"
	"taskpad/internal/remote"
	"taskpad/internal/tasks"
)

// Default server base URL; override with TASKPAD_SERVER or --server.
var serverBaseURL = "http://localhost:8790"

type view int

const (
	viewSignIn view = iota
	viewRegister
	viewTasks
)

// printNotifier renders the engine's transient notifications.
type printNotifier struct{}

func (printNotifier) Success(message string) { fmt.Println(message) }
func (printNotifier) Error(message string)   { fmt.Println("Error:", message) }

type cli struct {
	guard  *guard.Guard
	engine *tasks.Engine
	in     *bufio.Scanner
	view   view
	done   bool
}

// GoToSignIn implements guard.Navigator.
func (c *cli) GoToSignIn() {
	c.view = viewSignIn
}

func main() {
	serverFlag := flag.String("server", "", "Override server base URL (e.g. https://api.example.com)")
	flag.Parse()
	if env := os.Getenv("TASKPAD_SERVER"); env != "" {
		serverBaseURL = strings.TrimRight(env, "/")
	}
	if *serverFlag != "" {
		serverBaseURL = strings.TrimRight(*serverFlag, "/")
	}

	tokenPath, err := remote.DefaultTokenPath()
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	client, err := remote.NewClient(serverBaseURL, remote.NewTokenFile(tokenPath))
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}

	app := &cli{
		guard: guard.New(client),
		in:    bufio.NewScanner(os.Stdin),
		view:  viewTasks, // the task list is home; the guard decides
	}
	app.engine = tasks.NewEngine(client, printNotifier{})
	app.run(context.Background())
}

func (c *cli) run(ctx context.Context) {
	for !c.done {
		switch c.view {
		case viewSignIn:
			c.signInView(ctx)
		case viewRegister:
			c.registerView(ctx)
		case viewTasks:
			c.tasksView(ctx)
		}
	}
}

func (c *cli) prompt(label string) (string, bool) {
	fmt.Print(label)
	if !c.in.Scan() {
		c.done = true
		return "", false
	}
	return strings.TrimSpace(c.in.Text()), true
}

func (c *cli) signInView(ctx context.Context) {
	fmt.Println("\n-- Sign in --  (r: register, q: quit)")
	email, ok := c.prompt("email: ")
	if !ok {
		return
	}
	switch email {
	case "q":
		c.done = true
		return
	case "r":
		c.view = viewRegister
		return
	}
	password, ok := c.prompt("password: ")
	if !ok {
		return
	}

	if _, err := c.guard.SignIn(ctx, email, password); err != nil {
		fmt.Println("Error:", errMessage(err))
		return
	}
	c.view = viewTasks
}

func (c *cli) registerView(ctx context.Context) {
	fmt.Println("\n-- Create your account --")
	username, ok := c.prompt("username (min. 3 characters): ")
	if !ok {
		return
	}
	email, ok := c.prompt("email: ")
	if !ok {
		return
	}
	password, ok := c.prompt("password (min. 6 characters): ")
	if !ok {
		return
	}

	if _, err := c.guard.SignUp(ctx, email, password, username); err != nil {
		fmt.Println("Error:", errMessage(err))
		return
	}
	fmt.Println("Registration successful! Please sign in.")
	c.view = viewSignIn
}

func (c *cli) tasksView(ctx context.Context) {
	if _, ok := c.guard.Require(ctx, c); !ok {
		return
	}
	c.engine.Load(ctx)

	for c.view == viewTasks && !c.done {
		c.renderTasks()
		line, ok := c.prompt("> ")
		if !ok {
			return
		}
		c.dispatch(ctx, line)
	}
}

func (c *cli) renderTasks() {
	list := c.engine.Tasks()
	fmt.Println("\n-- Tasks --  (a: add, e N: edit, t N: toggle, d N: delete, r: reload, o: sign out, q: quit)")
	if len(list) == 0 {
		fmt.Println("No tasks yet")
		return
	}
	for i, task := range list {
		mark := " "
		if task.IsComplete {
			mark = "x"
		}
		fmt.Printf("%2d [%s] %s\n", i+1, mark, task.Title)
		if task.Description != "" {
			fmt.Printf("       %s\n", task.Description)
		}
	}
}

func (c *cli) dispatch(ctx context.Context, line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}
	cmd := fields[0]
	switch cmd {
	case "q":
		c.done = true
	case "r":
		c.engine.Load(ctx)
	case "a":
		title, ok := c.prompt("title: ")
		if !ok {
			return
		}
		description, ok := c.prompt("description (optional): ")
		if !ok {
			return
		}
		c.engine.SetCompose(title, description)
		c.engine.Create(ctx)
	case "e":
		task, ok := c.taskAt(fields)
		if !ok {
			return
		}
		c.engine.StartEdit(task)
		title, ok := c.prompt(fmt.Sprintf("title [%s]: ", task.Title))
		if !ok {
			return
		}
		description, ok := c.prompt(fmt.Sprintf("description [%s]: ", task.Description))
		if !ok {
			return
		}
		if title == "" && description == "" {
			c.engine.CancelEdit()
			return
		}
		if title == "" {
			title = task.Title
		}
		c.engine.SetDraft(title, description)
		c.engine.Save(ctx)
	case "t":
		if task, ok := c.taskAt(fields); ok {
			c.engine.ToggleComplete(ctx, task)
		}
	case "d":
		if task, ok := c.taskAt(fields); ok {
			c.engine.Remove(ctx, task.ID)
		}
	case "o":
		if err := c.guard.SignOut(ctx); err != nil {
			fmt.Println("Error: Error signing out")
		}
		c.view = viewSignIn
	default:
		fmt.Println("Unknown command")
	}
}

func (c *cli) taskAt(fields []string) (remote.Task, bool) {
	list := c.engine.Tasks()
	if len(fields) < 2 {
		fmt.Println("task number required")
		return remote.Task{}, false
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil || n < 1 || n > len(list) {
		fmt.Println("no such task")
		return remote.Task{}, false
	}
	return list[n-1], true
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
