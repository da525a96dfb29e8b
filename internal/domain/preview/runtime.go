package preview

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/GriffinCanCode/livepen/internal/domain/relay"
)

// ScriptSource is the source URL reported for inline scripts of a srcdoc frame
const ScriptSource = "about:srcdoc"

// TimeoutMessage is posted when the time budget interrupts a document
const TimeoutMessage = "Script execution timed out"

var syntaxPosition = regexp.MustCompile(`Line (\d+):(\d+)`)

type timer struct {
	id    int64
	delay int64
	fn    goja.Callable
	args  []goja.Value
}

// Runtime runs composed documents in a goja VM with browser-like globals
type Runtime struct {
	vm     *goja.Runtime
	config Config
	mu     sync.Mutex

	result *Result
	dom    *DOM
	timers []timer
	nextID int64
}

// New creates a headless runtime
func New(config Config) *Runtime {
	return &Runtime{config: config.normalize()}
}

// Execute runs every inline script of document in order, then the queued
// timers, and returns what the document posted to its parent.
//
// Script failures are part of the result, not errors. Execute only fails
// when the document cannot be parsed or ctx is done.
func (r *Runtime) Execute(ctx context.Context, document string) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	dom, err := ParseDocument(document)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	r.reset(dom)
	result := r.result

	done := make(chan struct{})
	defer close(done)
	deadline := time.NewTimer(r.config.Timeout)
	defer deadline.Stop()

	vm := r.vm
	go func() {
		select {
		case <-deadline.C:
			vm.Interrupt(TimeoutMessage)
		case <-ctx.Done():
			vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	interrupted := false
	for _, script := range dom.Scripts() {
		result.Scripts++
		if _, err := r.vm.RunScript(ScriptSource, script.Text); err != nil {
			if interrupted = r.fail(err, script.Line); interrupted {
				break
			}
		}
	}
	if !interrupted {
		interrupted = r.drainTimers()
	}

	result.Duration = time.Since(start)
	if interrupted {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}
		result.TimedOut = true
		result.Envelopes = append(result.Envelopes, relay.Envelope{
			Type:   relay.TagCodeError,
			Error:  TimeoutMessage,
			Source: ScriptSource,
		})
	}
	return result, nil
}

// Changes returns the DOM changes made by the last executed document
func (r *Runtime) Changes() []DOMChange {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.dom == nil {
		return nil
	}
	return r.dom.Changes()
}

// Reset drops all state of the last document
func (r *Runtime) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.vm = nil
	r.dom = nil
	r.result = nil
	r.timers = nil
}

func (r *Runtime) reset(dom *DOM) {
	r.vm = goja.New()
	r.vm.SetMaxCallStackSize(r.config.MaxCallStack)
	r.dom = dom
	r.result = &Result{}
	r.timers = nil
	r.nextID = 0
	r.setupGlobals()
}

// setupGlobals installs the frame's view of the world
func (r *Runtime) setupGlobals() {
	vm := r.vm
	global := vm.GlobalObject()

	for _, name := range []string{"require", "process", "module", "exports"} {
		vm.Set(name, goja.Undefined())
	}

	vm.Set("window", global)
	vm.Set("self", global)
	vm.Set("frames", global)

	parent := vm.NewObject()
	parent.Set("postMessage", r.postMessage)
	vm.Set("parent", parent)
	vm.Set("top", parent)

	console := vm.NewObject()
	for _, level := range []string{"log", "warn", "error", "info", "debug"} {
		console.Set(level, r.makeConsoleFunc(level))
	}
	vm.Set("console", console)

	vm.Set("setTimeout", r.setTimeout)
	vm.Set("clearTimeout", r.clearTimeout)
	vm.Set("setInterval", func(goja.FunctionCall) goja.Value { return goja.Undefined() })
	vm.Set("clearInterval", func(goja.FunctionCall) goja.Value { return goja.Undefined() })

	r.injectDOM()
}

func (r *Runtime) postMessage(call goja.FunctionCall) goja.Value {
	data, ok := call.Argument(0).Export().(map[string]interface{})
	if !ok {
		return goja.Undefined()
	}
	env, err := relay.FromMap(data)
	if err != nil {
		return goja.Undefined()
	}
	r.result.Envelopes = append(r.result.Envelopes, env)
	return goja.Undefined()
}

// makeConsoleFunc creates a console function
func (r *Runtime) makeConsoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		r.result.Console = append(r.result.Console, LogEntry{
			Level:   level,
			Message: strings.Join(parts, " "),
			Time:    time.Now(),
		})
		return goja.Undefined()
	}
}

func (r *Runtime) setTimeout(call goja.FunctionCall) goja.Value {
	fn, ok := goja.AssertFunction(call.Argument(0))
	if !ok {
		return goja.Undefined()
	}
	r.nextID++
	delay := call.Argument(1).ToInteger()
	if delay < 0 {
		delay = 0
	}
	var args []goja.Value
	if len(call.Arguments) > 2 {
		args = append(args, call.Arguments[2:]...)
	}
	r.timers = append(r.timers, timer{id: r.nextID, delay: delay, fn: fn, args: args})
	return r.vm.ToValue(r.nextID)
}

func (r *Runtime) clearTimeout(call goja.FunctionCall) goja.Value {
	id := call.Argument(0).ToInteger()
	for i, t := range r.timers {
		if t.id == id {
			r.timers = append(r.timers[:i], r.timers[i+1:]...)
			break
		}
	}
	return goja.Undefined()
}

// drainTimers runs queued callbacks by delay, then registration order.
// Callbacks may queue more callbacks until MaxTimers is reached.
func (r *Runtime) drainTimers() bool {
	for len(r.timers) > 0 && r.result.Timers < r.config.MaxTimers {
		sort.SliceStable(r.timers, func(i, j int) bool {
			if r.timers[i].delay != r.timers[j].delay {
				return r.timers[i].delay < r.timers[j].delay
			}
			return r.timers[i].id < r.timers[j].id
		})
		next := r.timers[0]
		r.timers = r.timers[1:]
		r.result.Timers++

		if _, err := next.fn(goja.Undefined(), next.args...); err != nil {
			if r.fail(err, 1) {
				return true
			}
		}
	}
	return false
}

// fail routes an uncaught exception to window.onerror. It reports whether
// execution was interrupted.
func (r *Runtime) fail(err error, scriptLine int) bool {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return true
	}

	var ex *goja.Exception
	if !errors.As(err, &ex) {
		r.result.Uncaught = append(r.result.Uncaught, err.Error())
		return false
	}

	val := ex.Value()
	line, col := position(ex)
	if line > 0 {
		line += scriptLine - 1
	}
	message := "Uncaught " + valueString(val)

	handler, ok := goja.AssertFunction(r.vm.Get("onerror"))
	if !ok {
		r.result.Uncaught = append(r.result.Uncaught, message)
		return false
	}

	_, herr := handler(r.vm.GlobalObject(),
		r.vm.ToValue(message),
		r.vm.ToValue(ScriptSource),
		r.vm.ToValue(line),
		r.vm.ToValue(col),
		val,
	)
	if herr != nil {
		if errors.As(herr, &interrupted) {
			return true
		}
		r.result.Uncaught = append(r.result.Uncaught, message)
	}
	return false
}

func position(ex *goja.Exception) (int, int) {
	if frames := ex.Stack(); len(frames) > 0 {
		pos := frames[0].Position()
		if pos.Line > 0 {
			return pos.Line, pos.Column
		}
	}
	// Syntax errors carry no stack, only the parser position
	if m := syntaxPosition.FindStringSubmatch(valueString(ex.Value())); m != nil {
		line, _ := strconv.Atoi(m[1])
		col, _ := strconv.Atoi(m[2])
		return line, col
	}
	return 0, 0
}

func valueString(v goja.Value) (s string) {
	defer func() {
		if recover() != nil {
			s = relay.PlaceholderUnserializable
		}
	}()
	if v == nil {
		return "undefined"
	}
	return v.String()
}

// injectDOM installs the document proxy
func (r *Runtime) injectDOM() {
	document := r.vm.NewObject()
	document.Set("getElementById", func(id string) goja.Value {
		if elem := r.dom.ByID(id); elem != nil {
			return r.elementProxy(elem)
		}
		return goja.Null()
	})
	document.Set("querySelector", func(selector string) goja.Value {
		return r.first(r.mustQuery(nil, selector))
	})
	document.Set("querySelectorAll", func(selector string) goja.Value {
		return r.list(r.mustQuery(nil, selector))
	})
	document.Set("getElementsByTagName", func(tag string) goja.Value {
		found, _ := r.dom.Query(tag)
		return r.list(found)
	})
	document.Set("getElementsByClassName", func(names string) goja.Value {
		fields := strings.Fields(names)
		if len(fields) == 0 {
			return r.list(nil)
		}
		found, _ := r.dom.Query("." + strings.Join(fields, "."))
		return r.list(found)
	})
	r.vm.Set("document", document)
}

// mustQuery throws a SyntaxError into the script for selectors that do not
// compile
func (r *Runtime) mustQuery(scope *Element, selector string) []*Element {
	var (
		found []*Element
		err   error
	)
	if scope == nil {
		found, err = r.dom.Query(selector)
	} else {
		found, err = r.dom.QueryIn(scope, selector)
	}
	if err != nil {
		ctor, ok := goja.AssertConstructor(r.vm.Get("SyntaxError"))
		if !ok {
			panic(r.vm.NewTypeError(err.Error()))
		}
		exc, cerr := ctor(nil, r.vm.ToValue(err.Error()))
		if cerr != nil {
			panic(r.vm.NewTypeError(err.Error()))
		}
		panic(exc)
	}
	return found
}

func (r *Runtime) first(elements []*Element) goja.Value {
	if len(elements) == 0 {
		return goja.Null()
	}
	return r.elementProxy(elements[0])
}

func (r *Runtime) list(elements []*Element) goja.Value {
	proxies := make([]interface{}, len(elements))
	for i, elem := range elements {
		proxies[i] = r.elementProxy(elem)
	}
	return r.vm.NewArray(proxies...)
}

func (r *Runtime) elementProxy(elem *Element) goja.Value {
	obj := r.vm.NewObject()
	obj.Set("tagName", elem.TagName)
	obj.Set("id", elem.ID)
	obj.Set("className", elem.ClassName)
	obj.Set("textContent", elem.TextContent)
	obj.Set("innerHTML", elem.InnerHTML)
	obj.Set("getAttribute", func(name string) goja.Value {
		if v := elem.GetAttribute(name); v != "" {
			return r.vm.ToValue(v)
		}
		return goja.Null()
	})
	obj.Set("setAttribute", func(name, value string) {
		r.dom.SetAttribute(elem, name, value)
	})
	obj.Set("querySelector", func(selector string) goja.Value {
		return r.first(r.mustQuery(elem, selector))
	})
	obj.Set("querySelectorAll", func(selector string) goja.Value {
		return r.list(r.mustQuery(elem, selector))
	})
	obj.Set("toString", func() string {
		return fmt.Sprintf("[object HTML%sElement]", elementKind(elem.TagName))
	})
	return obj
}

func elementKind(tag string) string {
	if tag == "" {
		return ""
	}
	return tag[:1] + strings.ToLower(tag[1:])
}
