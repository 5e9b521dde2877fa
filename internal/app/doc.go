// Package app assembles a masterkey session.
//
// An Application owns one of each component: the expression evaluator, the
// session store, the binding compiler, the dispatcher with its built-in
// commands, and optionally a watcher that recompiles the specification file
// when it changes. Components are built in dependency order and handed to
// each other through constructors; nothing is global.
//
// Basic usage:
//
//	h := host.NewMemory()
//	a, err := app.New(app.Options{Settings: settings, Host: h})
//	if err != nil {
//		return err
//	}
//	defer a.Close()
//
//	if err := a.Watch(); err != nil {
//		return err
//	}
package app
