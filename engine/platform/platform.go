package platform

import (
	"fmt"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vortex/engine/core"
)

func init() {
	// GLFW must run on the main OS thread
	runtime.LockOSThread()
}

// Platform bootstraps the process-wide Vulkan loader through GLFW. No window
// or surface is created: rendering is headless and the image is copied back
// to the host instead of being presented.
type Platform struct {
	initialized bool
}

func New() (*Platform, error) {
	return &Platform{}, nil
}

func (p *Platform) Startup() error {
	if err := glfw.Init(); err != nil {
		core.LogFatal("failed to initialize glfw: %s", err)
		return err
	}

	if !glfw.VulkanSupported() {
		err := fmt.Errorf("no Vulkan loader or ICD found on this system")
		core.LogError(err.Error())
		return err
	}

	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		err := fmt.Errorf("vkGetInstanceProcAddr is nil")
		core.LogError(err.Error())
		return err
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		core.LogError("failed to initialize vk: %s", err)
		return err
	}

	p.initialized = true
	return nil
}

func (p *Platform) Shutdown() error {
	if p.initialized {
		glfw.Terminate()
		p.initialized = false
	}
	return nil
}
