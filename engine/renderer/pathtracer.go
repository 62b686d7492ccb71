package renderer

import (
	"encoding/binary"
	gomath "math"
	"path/filepath"
	"unsafe"

	vk "github.com/goki/vulkan"
	"golang.org/x/exp/rand"

	"github.com/spaghettifunk/vortex/engine/assets"
	"github.com/spaghettifunk/vortex/engine/assets/writers"
	"github.com/spaghettifunk/vortex/engine/config"
	"github.com/spaghettifunk/vortex/engine/core"
	"github.com/spaghettifunk/vortex/engine/math"
	"github.com/spaghettifunk/vortex/engine/renderer/vulkan"
)

// instanceScale shrinks each grid copy so neighbours do not overlap.
const instanceScale = 1.0 / 2.7

/**
 * @brief Owns every device resource of one render: geometry, acceleration
 * structures, the pipeline, the binding table and the render targets.
 * Resources are released in strict reverse creation order on every exit path.
 */
type PathTracer struct {
	config *config.RenderConfig
	assets *assets.AssetManager

	context *vulkan.VulkanContext

	releases []func()
}

func NewPathTracer(cfg *config.RenderConfig, assetManager *assets.AssetManager, debug bool) (*PathTracer, error) {
	pt := &PathTracer{
		config: cfg,
		assets: assetManager,
		context: &vulkan.VulkanContext{
			Device: &vulkan.VulkanDevice{},
		},
	}

	if err := vulkan.InstanceCreate(pt.context, "Vortex Path Tracer", debug); err != nil {
		return nil, err
	}
	pt.deferRelease(func() { vulkan.InstanceDestroy(pt.context) })

	if err := vulkan.DeviceCreate(pt.context); err != nil {
		pt.Shutdown()
		return nil, err
	}
	pt.deferRelease(func() { vulkan.DeviceDestroy(pt.context) })

	return pt, nil
}

func (pt *PathTracer) deferRelease(fn func()) {
	pt.releases = append(pt.releases, fn)
}

// Shutdown waits for the device to go idle and unwinds the release stack.
func (pt *PathTracer) Shutdown() {
	if pt.context.Device != nil && pt.context.Device.LogicalDevice != nil {
		vk.DeviceWaitIdle(pt.context.Device.LogicalDevice)
	}
	for i := len(pt.releases) - 1; i >= 0; i-- {
		pt.releases[i]()
	}
	pt.releases = nil
}

// Render runs the full build and dispatch: upload the scene, build both
// acceleration structure levels, create the pipeline and binding table,
// trace every sample batch and write the accumulated image to disk.
func (pt *PathTracer) Render() error {
	cfg := pt.config
	context := pt.context

	mesh, err := pt.assets.LoadMesh(cfg.Scene)
	if err != nil {
		return err
	}
	core.LogInfo("Scene '%s': %d vertices, %d triangles.", cfg.Scene, mesh.VertexCount(), mesh.TriangleCount())

	vertexBuffer, indexBuffer, err := pt.uploadGeometry(mesh.Positions, mesh.Indices)
	if err != nil {
		return err
	}

	builder := vulkan.NewVulkanAccelerationBuilder(context)
	pt.deferRelease(builder.Destroy)

	blasInput := vulkan.BlasInput{
		VertexBuffer: vertexBuffer,
		VertexCount:  mesh.VertexCount(),
		VertexStride: 12,
		IndexBuffer:  indexBuffer,
		IndexCount:   uint32(len(mesh.Indices)),
	}
	if err := builder.BuildBlas([]vulkan.BlasInput{blasInput}, true); err != nil {
		return err
	}

	blasAddress, err := builder.BlasDeviceAddress(0)
	if err != nil {
		return err
	}

	instances := PlaceInstances(cfg.GridHalfExtent, cfg.PlacementSeed, blasAddress)
	if err := builder.BuildTlas(instances); err != nil {
		return err
	}

	tlas, err := builder.Tlas()
	if err != nil {
		return err
	}

	target, readback, err := pt.createRenderTargets()
	if err != nil {
		return err
	}

	shaders, err := pt.loadShaders()
	if err != nil {
		return err
	}

	pipeline, err := vulkan.NewRayTracingPipeline(context, shaders)
	if err != nil {
		return err
	}
	pt.deferRelease(func() { pipeline.Destroy(context) })

	if err := pipeline.WriteDescriptors(context, target, tlas, vertexBuffer, indexBuffer); err != nil {
		return err
	}

	sbt, err := vulkan.NewShaderBindingTable(context, pipeline.Handle, pipeline.GroupCounts)
	if err != nil {
		return err
	}
	pt.deferRelease(func() { sbt.Destroy(context) })

	push := vulkan.PushConstants{
		CameraOrigin: math.NewVec3(cfg.Camera.Origin[0], cfg.Camera.Origin[1], cfg.Camera.Origin[2]),
		CameraFov:    cfg.Camera.FovYDegrees * gomath.Pi / 180.0,
		LightDirection: math.NewVec3(
			cfg.Light.Direction[0], cfg.Light.Direction[1], cfg.Light.Direction[2]).Normalized(),
		LightIntensity: cfg.Light.Intensity,
	}

	dispatcher := vulkan.NewSampleDispatcher(context, pipeline, sbt, target, readback)
	if err := dispatcher.DispatchBatches(push, cfg.SampleBatches); err != nil {
		return err
	}

	pixels, err := pt.readbackPixels(readback)
	if err != nil {
		return err
	}

	if err := writers.WriteHDR(cfg.Output, cfg.Width, cfg.Height, pixels); err != nil {
		return err
	}
	core.LogInfo("Wrote '%s' (%dx%d, %d sample batches).", cfg.Output, cfg.Width, cfg.Height, cfg.SampleBatches)
	return nil
}

func (pt *PathTracer) uploadGeometry(positions []float32, indices []uint32) (*vulkan.VulkanBuffer, *vulkan.VulkanBuffer, error) {
	context := pt.context

	geometryUsage := vk.BufferUsageFlags(
		vk.BufferUsageStorageBufferBit |
			vulkan.BufferUsageShaderDeviceAddressBit |
			vulkan.BufferUsageAccelerationStructureBuildInputReadOnlyBitKHR)

	vertexBytes := make([]byte, len(positions)*4)
	for i, f := range positions {
		binary.LittleEndian.PutUint32(vertexBytes[i*4:], math.Float32bits(f))
	}
	vertexBuffer, err := vulkan.NewDeviceLocalBuffer(context, vertexBytes, geometryUsage)
	if err != nil {
		return nil, nil, err
	}
	pt.deferRelease(func() { vertexBuffer.Destroy(context) })

	indexBytes := make([]byte, len(indices)*4)
	for i, v := range indices {
		binary.LittleEndian.PutUint32(indexBytes[i*4:], v)
	}
	indexBuffer, err := vulkan.NewDeviceLocalBuffer(context, indexBytes, geometryUsage)
	if err != nil {
		return nil, nil, err
	}
	pt.deferRelease(func() { indexBuffer.Destroy(context) })

	return vertexBuffer, indexBuffer, nil
}

func (pt *PathTracer) createRenderTargets() (*vulkan.VulkanImage, *vulkan.VulkanImage, error) {
	context := pt.context
	cfg := pt.config

	target, err := vulkan.NewVulkanImage(context, cfg.Width, cfg.Height,
		vk.FormatR32g32b32a32Sfloat, vk.ImageTilingOptimal,
		vk.ImageUsageFlags(vk.ImageUsageStorageBit|vk.ImageUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		true)
	if err != nil {
		return nil, nil, err
	}
	pt.deferRelease(func() { target.Destroy(context) })

	readback, err := vulkan.NewVulkanImage(context, cfg.Width, cfg.Height,
		vk.FormatR32g32b32a32Sfloat, vk.ImageTilingLinear,
		vk.ImageUsageFlags(vk.ImageUsageTransferDstBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit),
		false)
	if err != nil {
		return nil, nil, err
	}
	pt.deferRelease(func() { readback.Destroy(context) })

	return target, readback, nil
}

func (pt *PathTracer) loadShaders() (*vulkan.RayTracingShaders, error) {
	raygen, err := pt.assets.LoadShaderBinary(filepath.Join(pt.config.ShaderDir, "raytrace.rgen.spv"))
	if err != nil {
		return nil, err
	}
	return &vulkan.RayTracingShaders{Raygen: raygen}, nil
}

// readbackPixels copies the linear image row by row, honoring the driver's
// row pitch, into a tight float32 slice.
func (pt *PathTracer) readbackPixels(readback *vulkan.VulkanImage) ([]float32, error) {
	context := pt.context
	width, height := readback.Width, readback.Height

	ptr, rowPitch, err := readback.MapPixels(context)
	if err != nil {
		return nil, err
	}
	defer readback.UnmapPixels(context)

	rowBytes := int(width) * 4 * 4
	src := unsafe.Slice((*byte)(ptr), int(rowPitch)*int(height))
	pixels := make([]float32, int(width)*int(height)*4)

	for y := 0; y < int(height); y++ {
		row := src[y*int(rowPitch) : y*int(rowPitch)+rowBytes]
		for x := 0; x < int(width)*4; x++ {
			pixels[y*int(width)*4+x] = math.Float32frombits(binary.LittleEndian.Uint32(row[x*4:]))
		}
	}
	return pixels, nil
}

// PlaceInstances lays a (2n+1)^2 grid of copies over the XY plane, each
// nudged by a seeded random rotation. The same seed always produces the same
// placements.
func PlaceInstances(halfExtent int32, seed uint64, blasAddress uint64) []vulkan.AccelerationInstance {
	rng := rand.New(rand.NewSource(seed))
	side := 2*halfExtent + 1
	instances := make([]vulkan.AccelerationInstance, 0, side*side)

	recenter := math.NewMat4Translation(math.NewVec3(0, -1, 0))
	shrink := math.NewMat4Scale(math.NewVec3(instanceScale, instanceScale, instanceScale))

	for gy := -halfExtent; gy <= halfExtent; gy++ {
		for gx := -halfExtent; gx <= halfExtent; gx++ {
			jitterX := rng.Float32() * 2 * gomath.Pi
			jitterY := rng.Float32() * 2 * gomath.Pi

			world := math.NewMat4Translation(math.NewVec3(float32(gx), float32(gy), 0)).
				Mul(shrink).
				Mul(math.NewMat4EulerY(jitterY)).
				Mul(math.NewMat4EulerX(jitterX)).
				Mul(recenter)

			instances = append(instances, vulkan.AccelerationInstance{
				Transform:   world.ToTransformMatrix(),
				CustomIndex: uint32(len(instances)),
				Mask:        0xFF,
				Flags:       vulkan.InstanceTriangleFacingCullDisable,
				BlasAddress: blasAddress,
			})
		}
	}
	return instances
}
