// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package discovery

// Each extraction query pairs a "<kind>.def" capture (the whole
// construct, used for Text/StartLine/EndLine) with a "<kind>.name"
// capture (the identifier, used for Name and thus for DeriveID).
// extractFile (discovery.go) only understands the kinds "function",
// "method" and "class" before the dot; queries for other languages are
// expected to emit captures using those same three kinds.

const goQuery = `
(function_declaration
  name: (identifier) @function.name) @function.def

(method_declaration
  name: (field_identifier) @method.name) @method.def

(type_declaration
  (type_spec
    name: (type_identifier) @class.name
    type: (struct_type))) @class.def
`

const pythonQuery = `
(function_definition
  name: (identifier) @function.name) @function.def

(class_definition
  name: (identifier) @class.name) @class.def
`

const javascriptQuery = `
(function_declaration
  name: (identifier) @function.name) @function.def

(method_definition
  name: (property_identifier) @method.name) @method.def

(class_declaration
  name: (identifier) @class.name) @class.def
`
