// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the smart-discovery pipeline:
// source blocks (Block, BlockType), evidence (EvidenceItem, EvidenceSet),
// report structure (Bullet, Section, Report), customer configuration
// (CustomerConfig, SlideBudget, TemplateSlot) and the CLI and pipeline
// settings (PipelineConfig).
package types
