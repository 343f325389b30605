// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render abstracts the GPU resources the engine paints with.
//
// A Device owns textures, buffers, samplers, pipelines and bind groups,
// addressed by opaque numeric IDs. Two implementations ship with this
// module: render/native drives a gogpu/wgpu HAL device received from
// the host application, and render/software is a CPU reference device
// used as a fallback and as the test vehicle.
//
// Key principle: the engine RECEIVES its GPU device from the host, it
// does not own a window or swapchain. Backends register themselves with
// Register; NewDefaultDevice picks the highest-priority available one.
package render
