/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"reflect"
	"sort"
	"sync"

	"github.com/samber/lo"
)

var defaultRegistry = NewModelRegistry()

// SQLModel represents an entity whose table is created by EnsureCreated.
// Instance returns a struct pointer compatible with Bun (typically a typed
// nil such as (*User)(nil)); Priority orders creation, lower values first.
// Tables are dropped in the reverse order.
type SQLModel interface {
	Instance() interface{}
	Priority() int
}

// ModelRegistry stores SQL models and exposes them in a deterministic order.
type ModelRegistry interface {
	Register(model SQLModel)
	Models() []SQLModel
}

// modelRegistry keeps models sorted by priority on insert. Registering a
// model type again replaces the earlier entry.
type modelRegistry struct {
	mu     sync.RWMutex
	models []SQLModel
}

// NewModelRegistry returns an empty registry, independent of the default one.
func NewModelRegistry() ModelRegistry {
	return &modelRegistry{}
}

func (r *modelRegistry) Register(model SQLModel) {
	r.mu.Lock()
	defer r.mu.Unlock()

	typ := reflect.TypeOf(model.Instance())
	r.models = lo.Reject(r.models, func(m SQLModel, _ int) bool {
		return reflect.TypeOf(m.Instance()) == typ
	})
	at := sort.Search(len(r.models), func(i int) bool {
		return r.models[i].Priority() > model.Priority()
	})
	r.models = append(r.models, nil)
	copy(r.models[at+1:], r.models[at:])
	r.models[at] = model
}

// Models returns a copy of the registered models sorted by priority. Models
// sharing a priority keep their registration order.
func (r *modelRegistry) Models() []SQLModel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]SQLModel(nil), r.models...)
}

type ModelAdapter struct {
	instance interface{}
	priority int
}

// NewModelAdapter wraps a struct instance and priority into an SQLModel.
func NewModelAdapter(instance interface{}, priority int) SQLModel {
	return &ModelAdapter{instance: instance, priority: priority}
}

// Model returns the SQLModel for T, i.e. NewModelAdapter((*T)(nil), priority).
func Model[T any](priority int) SQLModel {
	return NewModelAdapter((*T)(nil), priority)
}

func (a *ModelAdapter) Instance() interface{} { return a.instance }

func (a *ModelAdapter) Priority() int { return a.priority }

// GetRegisteredModels returns all models registered in the default registry
// sorted by ascending priority.
func GetRegisteredModels() []SQLModel {
	return defaultRegistry.Models()
}

// RegisteredModel adds a model to the default registry.
func RegisteredModel(model SQLModel) {
	defaultRegistry.Register(model)
}

// DefaultModelRegistry returns the registry used by InitDB and RunMigrations.
func DefaultModelRegistry() ModelRegistry {
	return defaultRegistry
}

func RegisteredModelInstances() []interface{} {
	return modelInstances(GetRegisteredModels())
}

func modelInstances(models []SQLModel) []interface{} {
	return lo.Map(models, func(m SQLModel, _ int) interface{} { return m.Instance() })
}
