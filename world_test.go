package patchbay_test

import (
	"github.com/ambrel/patchbay/modelkit"
)

// world is the component-model hierarchy the resolver tests run against.
//
//	ImageSource (frame)        DepthSource (cloud)
//	CameraDriver provides camera: ImageSource
//	  FirewireCamera, UsbCamera subtypes
//	RGBDDriver provides color: ImageSource (frame->color_frame)
//	             and depth: DepthSource (cloud->points)
//	StereoDriver provides left and right ImageSources
type world struct {
	Image *modelkit.ServiceType
	Depth *modelkit.ServiceType

	Camera   *modelkit.TaskType
	Firewire *modelkit.TaskType
	Usb      *modelkit.TaskType
	RGBD     *modelkit.TaskType
	Stereo   *modelkit.TaskType

	CamBound   *modelkit.BoundService
	ColorBound *modelkit.BoundService
	DepthBound *modelkit.BoundService
	LeftBound  *modelkit.BoundService
	RightBound *modelkit.BoundService
}

func newWorld() *world {
	w := &world{}
	w.Image = modelkit.NewServiceType("ImageSource").WithPorts("frame")
	w.Depth = modelkit.NewServiceType("DepthSource").WithPorts("cloud")

	w.Camera = modelkit.NewTaskType("CameraDriver")
	w.CamBound = w.Camera.Provides("camera", w.Image, nil)
	w.Firewire = w.Camera.Subtype("FirewireCamera")
	w.Usb = w.Camera.Subtype("UsbCamera")

	w.RGBD = modelkit.NewTaskType("RGBDDriver")
	w.ColorBound = w.RGBD.Provides("color", w.Image, map[string]string{"frame": "color_frame"})
	w.DepthBound = w.RGBD.Provides("depth", w.Depth, map[string]string{"cloud": "points"})

	w.Stereo = modelkit.NewTaskType("StereoDriver")
	w.LeftBound = w.Stereo.Provides("left", w.Image, map[string]string{"frame": "left_frame"})
	w.RightBound = w.Stereo.Provides("right", w.Image, map[string]string{"frame": "right_frame"})
	return w
}
